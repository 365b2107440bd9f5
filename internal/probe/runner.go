package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
)

// Run executes the probe: health check, one evaluation per subject, then
// the read surface.
func Run(ctx context.Context, cfg *Config) error {
	client := &http.Client{Timeout: cfg.Timeout}

	if err := checkServiceStatus(ctx, client, cfg.BaseURL); err != nil {
		return fmt.Errorf("service not ready: %w", err)
	}

	subjects := cfg.Subjects
	if len(subjects) == 0 {
		subjects = syntheticSubjects(cfg.NumSubjects)
	}

	stats := &Stats{}
	start := time.Now()
	for _, subject := range subjects {
		ins, err := evaluate(ctx, client, cfg.BaseURL, subject)
		if err != nil {
			stats.Failed++
			fmt.Printf("FAIL %s: %v\n", subject, err)
			continue
		}
		stats.Evaluated++
		if ins.RiskLevel == model.RiskHigh || ins.RiskLevel == model.RiskCritical {
			stats.HighRisk++
		}
		if ins.Origin == model.OriginFallback {
			stats.Fallbacks++
		}
		if cfg.Verbose {
			fmt.Printf("OK   %s: risk=%s veracity=%s confidence=%.2f origin=%s\n",
				subject, ins.RiskLevel, ins.Veracity, ins.Confidence, ins.Origin)
		}
	}
	stats.TotalElapsed = time.Since(start)

	if err := verifyReads(ctx, client, cfg, subjects); err != nil {
		return err
	}

	fmt.Printf("\nevaluated=%d failed=%d high_risk=%d fallbacks=%d elapsed=%s\n",
		stats.Evaluated, stats.Failed, stats.HighRisk, stats.Fallbacks,
		stats.TotalElapsed.Round(time.Millisecond))
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d evaluations failed", stats.Failed, len(subjects))
	}
	return nil
}

func syntheticSubjects(n int) []string {
	if n <= 0 {
		n = DefaultSubjects
	}
	subjects := make([]string, 0, n)
	for i := 0; i < n; i++ {
		subjects = append(subjects, fmt.Sprintf("probe/model-%03d", i))
	}
	return subjects
}

func checkServiceStatus(ctx context.Context, client *http.Client, baseURL string) error {
	var status model.PipelineStatus
	if err := getJSON(ctx, client, baseURL+"/status", &status); err != nil {
		return err
	}
	fmt.Printf("service up: watcher_active=%t queue_length=%d subjects=%d\n",
		status.WatcherActive, status.QueueLength, status.Subjects)
	return nil
}

func evaluate(ctx context.Context, client *http.Client, baseURL, subject string) (model.TrustInsight, error) {
	body, err := json.Marshal(map[string]string{"subject": subject})
	if err != nil {
		return model.TrustInsight{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return model.TrustInsight{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return model.TrustInsight{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.TrustInsight{}, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Success bool               `json:"success"`
		Insight model.TrustInsight `json:"insight"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.TrustInsight{}, err
	}
	return out.Insight, nil
}

// verifyReads checks that every evaluated subject is served back and the
// ranking endpoint answers.
func verifyReads(ctx context.Context, client *http.Client, cfg *Config, subjects []string) error {
	for _, subject := range subjects {
		var ins model.TrustInsight
		if err := getJSON(ctx, client, cfg.BaseURL+"/insights/"+subject, &ins); err != nil {
			return fmt.Errorf("insight for %s not readable: %w", subject, err)
		}
		if ins.Subject != subject {
			return fmt.Errorf("insight subject mismatch: want %s, got %s", subject, ins.Subject)
		}
	}

	var top struct {
		Count   int               `json:"count"`
		Entries []model.CacheEntry `json:"entries"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("%s/top?limit=%d", cfg.BaseURL, cfg.TopN), &top); err != nil {
		return fmt.Errorf("ranking not readable: %w", err)
	}
	fmt.Printf("ranking serves %d entries\n", top.Count)
	for i := 1; i < len(top.Entries); i++ {
		if top.Entries[i].Payload.TrustScore > top.Entries[i-1].Payload.TrustScore {
			return fmt.Errorf("ranking out of order at position %d", i)
		}
	}
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
