package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func at(t time.Time) *time.Time { return &t }

func TestRecordMoodStampsAndNotifies(t *testing.T) {
	clk := clock.NewFake(t0)
	f := New(clk)

	var got []string
	f.OnMood(func(_ context.Context, userID string, e model.MoodEntry) {
		got = append(got, userID)
		assert.Equal(t, t0, e.Timestamp)
	})

	e := f.RecordMood(context.Background(), "u1", model.MoodEntry{MoodScore: score(3)})
	assert.Equal(t, t0, e.Timestamp)
	assert.Equal(t, []string{"u1"}, got)
	assert.Equal(t, []string{"u1"}, f.Users())
}

func TestRecentMoodsChronologicalAndBounded(t *testing.T) {
	f := New(clock.NewFake(t0))
	ctx := context.Background()

	for i := 0; i < MaxMoods+5; i++ {
		f.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: score(float64(i)), Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	// out-of-order arrival lands in timestamp order
	f.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: score(-1), Timestamp: t0.Add(time.Duration(MaxMoods+10) * time.Minute)})
	f.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: score(-2), Timestamp: t0.Add(time.Duration(MaxMoods+7) * time.Minute)})

	all := f.RecentMoods("u1", -1)
	require.Len(t, all, MaxMoods)

	last := f.RecentMoods("u1", 2)
	require.Len(t, last, 2)
	assert.Equal(t, -2.0, *last[0].MoodScore)
	assert.Equal(t, -1.0, *last[1].MoodScore)

	assert.Empty(t, f.RecentMoods("nobody", 10))
}

func TestActivitiesRetentionAndQueries(t *testing.T) {
	clk := clock.NewFake(t0)
	f := New(clk)
	ctx := context.Background()

	var calls int
	f.OnActivity(func(context.Context, string, model.Activity) { calls++ })

	f.RecordActivity(ctx, "u1", model.Activity{Type: "walk", Completed: true, CompletedAt: at(t0.Add(-40 * 24 * time.Hour))})
	f.RecordActivity(ctx, "u1", model.Activity{Type: "call", Category: "social", Completed: true, CompletedAt: at(t0.Add(-2 * time.Hour))})
	rec := f.RecordActivity(ctx, "u1", model.Activity{Type: "journal", Completed: true})
	f.RecordActivity(ctx, "u1", model.Activity{Type: "medication", ScheduledTime: at(t0.Add(-48 * time.Hour))})

	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, t0, *rec.CompletedAt)
	assert.Equal(t, 4, calls)

	all := f.Activities("u1")
	require.Len(t, all, 3, "activity older than retention is dropped")

	recent := f.ActivitiesSince("u1", t0.Add(-24*time.Hour))
	require.Len(t, recent, 2)
	assert.True(t, IsSocial(recent[0]))
	assert.False(t, IsSocial(recent[1]))

	assert.Equal(t, 2, f.CompletedSince("u1", t0.Add(-7*24*time.Hour)))
}

func TestUsersMergesBothHistories(t *testing.T) {
	f := New(clock.NewFake(t0))
	ctx := context.Background()
	f.RecordActivity(ctx, "b", model.Activity{Type: "walk"})
	f.RecordMood(ctx, "a", model.MoodEntry{})
	f.RecordMood(ctx, "b", model.MoodEntry{})
	assert.Equal(t, []string{"a", "b"}, f.Users())
}
