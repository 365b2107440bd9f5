package insight_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	insight "github.com/veridex/veridex/internal/domain/insight"
	model "github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubLM struct {
	answer string
	err    error
	called bool
}

func (s *stubLM) Complete(context.Context, string, string) (string, error) {
	s.called = true
	return s.answer, s.err
}

type recordingNotifier struct {
	notified []model.TrustInsight
}

func (n *recordingNotifier) NotifyHighRisk(_ context.Context, ins model.TrustInsight) {
	n.notified = append(n.notified, ins)
}

func sampleContext(riskScore int) model.EvaluationContext {
	flags := make([]model.AnomalyFlag, 0)
	if riskScore > 0 {
		flags = append(flags, model.AnomalyFlag{
			Type:     "whale_stake",
			Severity: model.SeverityHigh,
			Detail:   "one wallet holds most of the stake",
		})
	}
	return model.EvaluationContext{
		Subject: "acme/sentiment-v2",
		Stats:   model.AggregateStats{TrustScore: 64, TotalRatings: 4},
		Anomalies: model.AnomalyReport{
			Flags:     flags,
			RiskScore: riskScore,
			RiskLevel: model.RiskLevelFor(riskScore),
		},
	}
}

func TestFallback(t *testing.T) {
	Convey("Given a deterministic fallback", t, func() {
		Convey("It always carries the fixed confidence and fallback origin", func() {
			ins := insight.Fallback(sampleContext(35), nil)
			So(ins.Confidence, ShouldEqual, 0.7)
			So(ins.Origin, ShouldEqual, model.OriginFallback)
			So(ins.RiskLevel, ShouldEqual, model.RiskMedium)
			So(ins.Veracity, ShouldEqual, model.VeracityUnknown)
		})

		Convey("Trust indicators are clamped into [0,1]", func() {
			ec := sampleContext(120)
			ec.Stats.TotalRatings = 50
			ins := insight.Fallback(ec, nil)
			So(ins.TrustIndicators.RatingAuthenticity, ShouldEqual, 0)
			So(ins.TrustIndicators.CommunityConsensus, ShouldEqual, 1)
		})

		Convey("High risk recommends flagging, low risk keeps monitoring", func() {
			So(insight.Fallback(sampleContext(75), nil).RecommendedActions,
				ShouldResemble, []string{"flag_model", "request_review"})
			So(insight.Fallback(sampleContext(0), nil).RecommendedActions,
				ShouldResemble, []string{"continue_monitoring"})
		})

		Convey("Veracity follows the accuracy comparison when present", func() {
			diff := 0.12
			ec := sampleContext(0)
			ec.AccuracyComparison = &model.AccuracyComparison{
				Difference: &diff, Mismatch: true, Severity: model.SeverityMedium,
			}
			So(insight.Fallback(ec, nil).Veracity, ShouldEqual, model.VeracityMismatch)
		})

		Convey("The same context always yields the same insight", func() {
			a := insight.Fallback(sampleContext(35), nil)
			b := insight.Fallback(sampleContext(35), nil)
			So(a, ShouldResemble, b)
		})
	})
}

func TestSynthesize_ModelPath(t *testing.T) {
	Convey("Given a language model that answers well-formed JSON", t, func() {
		lm := &stubLM{answer: "```json\n" + `{
			"veracity": "MATCH",
			"risk_level": "LOW",
			"confidence": 0.92,
			"summary": "Community signal and benchmarks agree.",
			"evidence": ["claimed 0.90 vs measured 0.89"],
			"recommended_actions": ["continue_monitoring"],
			"trust_indicators": {"rating_authenticity": 0.95, "community_consensus": 0.4}
		}` + "\n```"}
		s := insight.New(lm, insight.WithNow(func() time.Time { return fixedNow }))

		ins := s.Synthesize(context.Background(), sampleContext(0), nil)

		Convey("The answer becomes a synthesized insight", func() {
			So(lm.called, ShouldBeTrue)
			So(ins.Origin, ShouldEqual, model.OriginSynthesized)
			So(ins.Veracity, ShouldEqual, model.VeracityMatch)
			So(ins.Confidence, ShouldEqual, 0.92)
			So(ins.TrustIndicators.RatingAuthenticity, ShouldEqual, 0.95)
			So(ins.ID, ShouldNotBeEmpty)
			So(ins.CreatedAt.Equal(fixedNow), ShouldBeTrue)
		})
	})
}

func TestSynthesize_DegradesToFallback(t *testing.T) {
	Convey("Given language model failures", t, func() {
		ec := sampleContext(35)

		Convey("A transport error degrades to the fallback", func() {
			s := insight.New(&stubLM{err: errors.New("upstream 503")})
			ins := s.Synthesize(context.Background(), ec, nil)
			So(ins.Origin, ShouldEqual, model.OriginFallback)
			So(ins.Confidence, ShouldEqual, 0.7)
		})

		Convey("Non-JSON output degrades to the fallback", func() {
			s := insight.New(&stubLM{answer: "I think this model is fine."})
			So(s.Synthesize(context.Background(), ec, nil).Origin, ShouldEqual, model.OriginFallback)
		})

		Convey("An out-of-vocabulary risk level degrades to the fallback", func() {
			s := insight.New(&stubLM{answer: `{"veracity":"MATCH","risk_level":"SEVERE","confidence":0.5,"summary":"x"}`})
			So(s.Synthesize(context.Background(), ec, nil).Origin, ShouldEqual, model.OriginFallback)
		})

		Convey("A nil language model always takes the fallback path", func() {
			s := insight.New(nil)
			So(s.Synthesize(context.Background(), ec, nil).Origin, ShouldEqual, model.OriginFallback)
		})
	})
}

func TestSynthesize_Notifications(t *testing.T) {
	Convey("Given a wired notifier", t, func() {
		Convey("HIGH findings are delivered", func() {
			n := &recordingNotifier{}
			s := insight.New(nil, insight.WithNotifier(n))
			s.Synthesize(context.Background(), sampleContext(75), nil)
			So(n.notified, ShouldHaveLength, 1)
			So(n.notified[0].RiskLevel, ShouldEqual, model.RiskHigh)
		})

		Convey("LOW findings stay quiet", func() {
			n := &recordingNotifier{}
			s := insight.New(nil, insight.WithNotifier(n))
			s.Synthesize(context.Background(), sampleContext(0), nil)
			So(n.notified, ShouldBeEmpty)
		})
	})
}
