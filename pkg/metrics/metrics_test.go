package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager against it", func() {
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("veridex_test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(5*time.Second),
			)

			Convey("Then the manager is usable and metrics are registered", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording pipeline activity", func() {
			RecordJobEnqueued()
			RecordJobDebounced()
			RecordJobCompleted()
			RecordJobFailed()
			RecordJobDuration(12.5)
			UpdateQueueDepth(3)
			RecordChainEvent("rating_submitted")
			RecordChainEventDropped()
			RecordSourceError("stats")
			RecordSourceLatency("ratings", 4.2)
			RecordInsightSynthesized()
			RecordInsightFallback()
			RecordLLMLatency(800)
			RecordProberError()
			RecordWebhookFailure()
			RecordCacheHit()
			RecordCacheMiss()
			RecordInsightRecorded()
			UpdateSubjectsTracked(7)
			RecordHTTPRequest("evaluate", "POST", "200")
			RecordHTTPRequestDuration("evaluate", "POST", "200", 5.0)

			Convey("Then the custom registry can gather without error", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
