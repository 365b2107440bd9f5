package queue

// pendingSet tracks subjects with a queued job. It is the debounce record:
// a subject stays in the set from enqueue until its job is popped by the
// drain loop. Guarded by the queue's own mutex, so no locking here.
type pendingSet struct {
	subjects map[string]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{subjects: make(map[string]struct{})}
}

func (p *pendingSet) has(subject string) bool {
	_, ok := p.subjects[subject]
	return ok
}

func (p *pendingSet) add(subject string) {
	p.subjects[subject] = struct{}{}
}

func (p *pendingSet) remove(subject string) {
	delete(p.subjects, subject)
}

func (p *pendingSet) size() int {
	return len(p.subjects)
}
