package anomaly_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	anomaly "github.com/veridex/veridex/internal/domain/anomaly"
	model "github.com/veridex/veridex/internal/domain/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newDetector() *anomaly.Detector {
	return anomaly.NewDetector(anomaly.WithNow(func() time.Time { return fixedNow }))
}

func rating(user string, ageAgo time.Duration, score, stake float64) model.RatingEvent {
	return model.RatingEvent{
		Subject:   "acme/sentiment-v2",
		User:      user,
		Score:     score,
		Stake:     stake,
		Timestamp: fixedNow.Add(-ageAgo).Unix(),
		Weight:    1,
	}
}

func TestDetector_RateSpike(t *testing.T) {
	Convey("Given a detector with a pinned clock", t, func() {
		d := newDetector()

		Convey("When five ratings arrived within the last hour", func() {
			ratings := []model.RatingEvent{
				rating("0xa1", 10*time.Minute, 4, 10),
				rating("0xa2", 20*time.Minute, 3, 10),
				rating("0xa3", 30*time.Minute, 4, 10),
				rating("0xa4", 40*time.Minute, 5, 10),
				rating("0xa5", 50*time.Minute, 2, 10),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then rate_spike fires with +20", func() {
				So(report.RiskScore, ShouldEqual, 20)
				So(report.Flags, ShouldHaveLength, 1)
				So(report.Flags[0].Type, ShouldEqual, "rate_spike")
				So(report.Flags[0].Evidence, ShouldHaveLength, 5)
				So(report.RiskLevel, ShouldEqual, model.RiskLow)
			})
		})

		Convey("When only four ratings are recent", func() {
			ratings := []model.RatingEvent{
				rating("0xa1", 10*time.Minute, 4, 10),
				rating("0xa2", 20*time.Minute, 3, 10),
				rating("0xa3", 30*time.Minute, 4, 10),
				rating("0xa4", 2*time.Hour, 5, 10),
				rating("0xa5", 3*time.Hour, 2, 10),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then rate_spike does not fire", func() {
				So(report.RiskScore, ShouldEqual, 0)
			})
		})
	})
}

func TestDetector_NewWalletCluster(t *testing.T) {
	Convey("Given ratings dominated by freshly created wallets", t, func() {
		d := newDetector()
		fresh := fixedNow.Add(-2 * 24 * time.Hour).Unix()
		old := fixedNow.Add(-90 * 24 * time.Hour).Unix()

		mk := func(user string, firstSeen int64) model.RatingEvent {
			r := rating(user, 48*time.Hour, 5, 10)
			r.WalletFirstSeen = firstSeen
			return r
		}

		Convey("When 3 of 5 raters joined within 7 days", func() {
			ratings := []model.RatingEvent{
				mk("0xf1", fresh), mk("0xf2", fresh), mk("0xf3", fresh),
				mk("0xo1", old), mk("0xo2", old),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then new_wallet_cluster fires with +35", func() {
				So(report.RiskScore, ShouldEqual, 35)
				So(report.Flags[0].Type, ShouldEqual, "new_wallet_cluster")
				So(report.Flags[0].Evidence, ShouldResemble, []string{"0xf1", "0xf2", "0xf3"})
			})
		})

		Convey("When fresh wallets are exactly half of all ratings", func() {
			ratings := []model.RatingEvent{
				mk("0xf1", fresh), mk("0xf2", fresh), mk("0xf3", fresh),
				mk("0xo1", old), mk("0xo2", old), mk("0xo3", old),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then the cluster does not fire (share must exceed 0.5)", func() {
				So(report.RiskScore, ShouldEqual, 0)
			})
		})

		Convey("When wallet age is unknown", func() {
			ratings := []model.RatingEvent{
				mk("0xu1", 0), mk("0xu2", 0), mk("0xu3", 0),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then unknown wallets never count as new", func() {
				So(report.RiskScore, ShouldEqual, 0)
			})
		})
	})
}

func TestDetector_WhaleStake(t *testing.T) {
	Convey("Given a detector", t, func() {
		d := newDetector()

		Convey("When one rating holds half the total stake", func() {
			ratings := []model.RatingEvent{
				rating("0xwhale", 48*time.Hour, 5, 500),
				rating("0xb1", 48*time.Hour, 4, 250),
				rating("0xb2", 48*time.Hour, 3, 250),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then whale_stake fires with +30 and names the whale", func() {
				So(report.RiskScore, ShouldEqual, 30)
				So(report.Flags[0].Type, ShouldEqual, "whale_stake")
				So(report.Flags[0].Evidence, ShouldResemble, []string{"0xwhale"})
			})
		})

		Convey("When stake is spread evenly", func() {
			ratings := []model.RatingEvent{
				rating("0xb1", 48*time.Hour, 4, 100),
				rating("0xb2", 48*time.Hour, 3, 100),
				rating("0xb3", 48*time.Hour, 5, 100),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then whale_stake does not fire", func() {
				So(report.RiskScore, ShouldEqual, 0)
			})
		})
	})
}

func TestDetector_ScoreUniformityAndSlashed(t *testing.T) {
	Convey("Given a detector", t, func() {
		d := newDetector()

		Convey("When five of six ratings carry the same score", func() {
			ratings := []model.RatingEvent{
				rating("0xa", 48*time.Hour, 5, 10),
				rating("0xb", 48*time.Hour, 5, 10),
				rating("0xc", 48*time.Hour, 5, 10),
				rating("0xd", 48*time.Hour, 5, 10),
				rating("0xe", 48*time.Hour, 5, 10),
				rating("0xf", 48*time.Hour, 2, 10),
			}
			report := d.Detect(ratings, model.AggregateStats{})

			Convey("Then score_uniformity fires with +15", func() {
				So(report.RiskScore, ShouldEqual, 15)
				So(report.Flags[0].Type, ShouldEqual, "score_uniformity")
			})
		})

		Convey("When a rating is slashed", func() {
			slashed := rating("0xbad", 48*time.Hour, 1, 10)
			slashed.Slashed = true
			report := d.Detect([]model.RatingEvent{slashed}, model.AggregateStats{})

			Convey("Then slashed_ratings fires with +25", func() {
				So(report.RiskScore, ShouldEqual, 25)
				So(report.Flags[0].Type, ShouldEqual, "slashed_ratings")
				So(report.Flags[0].Evidence, ShouldResemble, []string{"0xbad"})
			})
		})
	})
}

func TestDetector_CombinedScenario(t *testing.T) {
	Convey("Given 6 ratings: 4 in the last hour, 1 slashed, 50% stake on one address", t, func() {
		d := newDetector()
		ratings := []model.RatingEvent{
			rating("0xwhale", 10*time.Minute, 5, 500),
			rating("0xa2", 20*time.Minute, 5, 100),
			rating("0xa3", 30*time.Minute, 4, 100),
			rating("0xa4", 40*time.Minute, 5, 100),
			rating("0xa5", 70*time.Minute, 3, 100),
			rating("0xbad", 3*time.Hour, 1, 100),
		}
		ratings[5].Slashed = true

		report := d.Detect(ratings, model.AggregateStats{TotalRatings: 6})

		Convey("Then the score is whale+slashed = 55 without a spike", func() {
			// Only 4 ratings inside the hour, so rate_spike stays quiet.
			So(report.RiskScore, ShouldEqual, 55)
			So(report.RiskLevel, ShouldEqual, model.RiskMedium)
		})

		Convey("When a fifth rating moves inside the hour", func() {
			ratings[4] = rating("0xa5", 50*time.Minute, 3, 100)
			report := d.Detect(ratings, model.AggregateStats{TotalRatings: 6})

			Convey("Then rate_spike joins: 20+30+25 = 75, HIGH", func() {
				So(report.RiskScore, ShouldEqual, 75)
				So(report.RiskLevel, ShouldEqual, model.RiskHigh)
				So(report.Flags, ShouldHaveLength, 3)
				So(report.Flags[0].Type, ShouldEqual, "rate_spike")
				So(report.Flags[1].Type, ShouldEqual, "whale_stake")
				So(report.Flags[2].Type, ShouldEqual, "slashed_ratings")
			})
		})
	})
}

func TestDetector_EmptyInputAndDeterminism(t *testing.T) {
	Convey("Given no ratings at all", t, func() {
		d := newDetector()
		report := d.Detect(nil, model.AggregateStats{})

		Convey("Then the report is clean and LOW", func() {
			So(report.Flags, ShouldBeEmpty)
			So(report.RiskScore, ShouldEqual, 0)
			So(report.RiskLevel, ShouldEqual, model.RiskLow)
		})
	})

	Convey("Given identical input evaluated twice", t, func() {
		d := newDetector()
		ratings := []model.RatingEvent{
			rating("0xwhale", 10*time.Minute, 5, 900),
			rating("0xa2", 20*time.Minute, 5, 50),
			rating("0xa3", 3*time.Hour, 4, 50),
		}
		first := d.Detect(ratings, model.AggregateStats{})
		second := d.Detect(ratings, model.AggregateStats{})

		Convey("Then both reports are identical", func() {
			So(second, ShouldResemble, first)
		})
	})
}

func TestRiskLevelBoundaries(t *testing.T) {
	Convey("Risk level thresholds hold at the boundaries", t, func() {
		So(model.RiskLevelFor(29), ShouldEqual, model.RiskLow)
		So(model.RiskLevelFor(30), ShouldEqual, model.RiskMedium)
		So(model.RiskLevelFor(59), ShouldEqual, model.RiskMedium)
		So(model.RiskLevelFor(60), ShouldEqual, model.RiskHigh)
	})
}
