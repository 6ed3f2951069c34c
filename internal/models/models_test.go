package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOrderedMilestones_SortsByDeadlineThenID(t *testing.T) {
	g := &Goal{Milestones: []Milestone{
		{ID: 3, Deadline: day("2024-03-01")},
		{ID: 2, Deadline: day("2024-01-01")},
		{ID: 1, Deadline: day("2024-03-01")},
	}}

	ordered := g.OrderedMilestones()

	assert.Equal(t, []uint{2, 1, 3}, []uint{ordered[0].ID, ordered[1].ID, ordered[2].ID})
	// original slice untouched
	assert.Equal(t, uint(3), g.Milestones[0].ID)
}

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name       string
		milestones []Milestone
		want       GoalProgress
		completed  bool
	}{
		{"no milestones", nil, ProgressNotStarted, false},
		{"none done", []Milestone{{Completed: false}, {Completed: false}}, ProgressNotStarted, false},
		{"some done", []Milestone{{Completed: true}, {Completed: false}}, ProgressInProgress, false},
		{"all done", []Milestone{{Completed: true}, {Completed: true}}, ProgressCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Goal{Milestones: tt.milestones}
			assert.Equal(t, tt.want, g.Progress())
			assert.Equal(t, tt.completed, g.IsCompleted())
		})
	}
}

func TestJobStage(t *testing.T) {
	assert.True(t, StagePhoneScreen.Valid())
	assert.False(t, JobStage("ghosted").Valid())
	assert.True(t, StageInterview.ReachedInterview())
	assert.True(t, StageOffer.ReachedInterview())
	assert.False(t, StagePhoneScreen.ReachedInterview())
}
