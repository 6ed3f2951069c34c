package services

import (
	"math"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
)

// GoalInsights summarizes how the user is doing on their goals and how those
// goals translate into interviews and offers.
type GoalInsights struct {
	TotalGoals     int      `json:"total_goals"`
	CompletedGoals int      `json:"completed_goals"`
	CompletionRate int      `json:"completion_rate"`
	AvgMilestones  float64  `json:"avg_milestones"`
	AvgOnTimeRate  int      `json:"avg_on_time_rate"`
	AvgLateRate    int      `json:"avg_late_rate"`
	AvgSpacingDays *float64 `json:"avg_spacing_days"`

	LinkedGoals              int `json:"linked_goals"`
	GoalsLeadingToInterviews int `json:"goals_leading_to_interviews"`
	GoalsLeadingToOffers     int `json:"goals_leading_to_offers"`

	// OfferConversionRate divides offers by linked goals while
	// OfferRateOfAllGoals divides by every goal. Both are reported because
	// the recommendations have always used the all-goals figure.
	OfferConversionRate int `json:"offer_conversion_rate"`
	OfferRateOfAllGoals int `json:"offer_rate_of_all_goals"`

	Recommendations []string `json:"recommendations"`
}

// Recommendation texts.
const (
	RecFirstGoal      = "Start by creating your first goal and breaking it into milestones."
	RecReduceGoals    = "Your completion rate is below 40%. Consider reducing the number of active goals and focusing on the most important ones."
	RecRaiseTheBar    = "You complete most of your goals. Consider setting more ambitious targets."
	RecRealisticDates = "More than half of your completed milestones were late. Set more realistic deadlines."
	RecTightSpacing   = "Your milestones are packed less than 3 days apart. Give yourself more room between checkpoints."
	RecWideSpacing    = "Your milestones are more than 30 days apart. Add intermediate checkpoints to keep momentum."
	RecMoreMilestones = "Break your goals into at least two milestones to track progress."
	RecLinkJobs       = "Link your goals to job applications to see which ones lead to interviews and offers."
	RecInterviewPrep  = "Your goals lead to interviews but rarely to offers. Focus on interview preparation."
	RecKeepGoing      = "You're making steady progress. Keep it up!"
)

// ComputeInsights runs the goal analytics over in-memory goals and jobs. It
// does no I/O; empty input yields zeroed insights and a single recommendation.
func ComputeInsights(goals []models.Goal, jobs []models.Job) GoalInsights {
	if len(goals) == 0 {
		return GoalInsights{Recommendations: []string{RecFirstGoal}}
	}

	stages := make(map[uint]models.JobStage, len(jobs))
	for _, j := range jobs {
		stages[j.ID] = j.Stage
	}

	in := GoalInsights{TotalGoals: len(goals)}
	var (
		totalMilestones  int
		onTimeRateSum    float64
		lateRateSum      float64
		ratedGoals       int
		spacingSum       float64
		spacingIntervals int
	)

	for i := range goals {
		g := &goals[i]
		if g.IsCompleted() {
			in.CompletedGoals++
		}
		totalMilestones += len(g.Milestones)

		ordered := g.OrderedMilestones()

		var onTime, late int
		for j, m := range ordered {
			if m.Completed && m.CompletedAt != nil {
				if dayOf(*m.CompletedAt).After(dayOf(m.Deadline)) {
					late++
				} else {
					onTime++
				}
			}
			if j > 0 {
				spacingSum += daysBetween(ordered[j-1].Deadline, m.Deadline)
				spacingIntervals++
			}
		}
		if classified := onTime + late; classified > 0 {
			onTimeRateSum += float64(onTime) / float64(classified)
			lateRateSum += float64(late) / float64(classified)
			ratedGoals++
		}

		if g.LinkedJobID != nil {
			in.LinkedGoals++
			stage, ok := stages[*g.LinkedJobID]
			if ok && stage.ReachedInterview() {
				in.GoalsLeadingToInterviews++
			}
			if ok && stage == models.StageOffer {
				in.GoalsLeadingToOffers++
			}
		}
	}

	in.CompletionRate = percent(in.CompletedGoals, in.TotalGoals)
	in.AvgMilestones = round1(float64(totalMilestones) / float64(in.TotalGoals))
	if ratedGoals > 0 {
		in.AvgOnTimeRate = int(math.Round(onTimeRateSum / float64(ratedGoals) * 100))
		in.AvgLateRate = int(math.Round(lateRateSum / float64(ratedGoals) * 100))
	}
	if spacingIntervals > 0 {
		avg := round1(spacingSum / float64(spacingIntervals))
		in.AvgSpacingDays = &avg
	}
	if in.LinkedGoals > 0 {
		in.OfferConversionRate = percent(in.GoalsLeadingToOffers, in.LinkedGoals)
	}
	in.OfferRateOfAllGoals = percent(in.GoalsLeadingToOffers, in.TotalGoals)

	in.Recommendations = recommend(&in)
	return in
}

func recommend(in *GoalInsights) []string {
	var recs []string
	switch {
	case in.CompletionRate < 40:
		recs = append(recs, RecReduceGoals)
	case in.CompletionRate >= 80:
		recs = append(recs, RecRaiseTheBar)
	}
	if in.AvgLateRate > 50 {
		recs = append(recs, RecRealisticDates)
	}
	if in.AvgSpacingDays != nil {
		switch {
		case *in.AvgSpacingDays < 3:
			recs = append(recs, RecTightSpacing)
		case *in.AvgSpacingDays > 30:
			recs = append(recs, RecWideSpacing)
		}
	}
	if in.AvgMilestones < 2 {
		recs = append(recs, RecMoreMilestones)
	}
	if in.LinkedGoals == 0 {
		recs = append(recs, RecLinkJobs)
	} else if in.GoalsLeadingToInterviews > 0 && in.OfferRateOfAllGoals < 10 {
		recs = append(recs, RecInterviewPrep)
	}
	if len(recs) == 0 {
		recs = append(recs, RecKeepGoing)
	}
	return recs
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) float64 {
	return dayOf(b).Sub(dayOf(a)).Hours() / 24
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
