// Package feed is the in-process wellness and activity data feed. Mood
// entries and activity records are kept per user in bounded histories and
// delivered to registered callbacks as they are recorded.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

const (
	// MaxMoods bounds the per-user mood history.
	MaxMoods = 100
	// ActivityRetention bounds the per-user activity history by age.
	ActivityRetention = 30 * 24 * time.Hour
	// MaxActivities bounds activities that carry no usable timestamp.
	MaxActivities = 1000
)

// MoodCallback is invoked after a mood entry has been recorded.
type MoodCallback func(ctx context.Context, userID string, entry model.MoodEntry)

// ActivityCallback is invoked after an activity has been recorded.
type ActivityCallback func(ctx context.Context, userID string, activity model.Activity)

// Feed stores recent mood and activity records for every user.
type Feed struct {
	clock clock.Clock

	mu         sync.RWMutex
	moods      map[string][]model.MoodEntry
	activities map[string][]model.Activity
	onMood     []MoodCallback
	onActivity []ActivityCallback
}

func New(clk clock.Clock) *Feed {
	if clk == nil {
		clk = clock.Real()
	}
	return &Feed{
		clock:      clk,
		moods:      make(map[string][]model.MoodEntry),
		activities: make(map[string][]model.Activity),
	}
}

// OnMood registers cb for every subsequently recorded mood entry.
func (f *Feed) OnMood(cb MoodCallback) {
	f.mu.Lock()
	f.onMood = append(f.onMood, cb)
	f.mu.Unlock()
}

// OnActivity registers cb for every subsequently recorded activity.
func (f *Feed) OnActivity(cb ActivityCallback) {
	f.mu.Lock()
	f.onActivity = append(f.onActivity, cb)
	f.mu.Unlock()
}

// RecordMood stores entry and runs the mood callbacks synchronously. A zero
// timestamp is stamped with the current time.
func (f *Feed) RecordMood(ctx context.Context, userID string, entry model.MoodEntry) model.MoodEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = f.clock.Now()
	}
	entry.Emotions = append([]string(nil), entry.Emotions...)

	f.mu.Lock()
	list := append(f.moods[userID], entry)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	if len(list) > MaxMoods {
		list = append([]model.MoodEntry(nil), list[len(list)-MaxMoods:]...)
	}
	f.moods[userID] = list
	cbs := append([]MoodCallback(nil), f.onMood...)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(ctx, userID, entry)
	}
	return entry
}

// RecordActivity stores activity and runs the activity callbacks synchronously.
func (f *Feed) RecordActivity(ctx context.Context, userID string, activity model.Activity) model.Activity {
	now := f.clock.Now()
	if activity.Completed && activity.CompletedAt == nil {
		activity.CompletedAt = &now
	}

	f.mu.Lock()
	f.activities[userID] = trimActivities(append(f.activities[userID], activity), now)
	cbs := append([]ActivityCallback(nil), f.onActivity...)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(ctx, userID, activity)
	}
	return activity
}

func trimActivities(list []model.Activity, now time.Time) []model.Activity {
	cutoff := now.Add(-ActivityRetention)
	kept := list[:0]
	for _, a := range list {
		if w := a.When(); !w.IsZero() && w.Before(cutoff) {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) > MaxActivities {
		kept = kept[len(kept)-MaxActivities:]
	}
	return append([]model.Activity(nil), kept...)
}

// RecentMoods returns up to n of the newest mood entries, oldest first.
func (f *Feed) RecentMoods(userID string, n int) []model.MoodEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	list := f.moods[userID]
	if n >= 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]model.MoodEntry(nil), list...)
}

// Activities returns every retained activity for the user in recording order.
func (f *Feed) Activities(userID string) []model.Activity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]model.Activity(nil), f.activities[userID]...)
}

// ActivitiesSince returns activities anchored at or after t.
func (f *Feed) ActivitiesSince(userID string, t time.Time) []model.Activity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []model.Activity
	for _, a := range f.activities[userID] {
		if w := a.When(); !w.IsZero() && !w.Before(t) {
			out = append(out, a)
		}
	}
	return out
}

// CompletedSince counts completed activities finished at or after t.
func (f *Feed) CompletedSince(userID string, t time.Time) int {
	n := 0
	for _, a := range f.ActivitiesSince(userID, t) {
		if a.Completed {
			n++
		}
	}
	return n
}

// Users lists every user with recorded data, sorted.
func (f *Feed) Users() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seen := make(map[string]struct{}, len(f.moods)+len(f.activities))
	for u := range f.moods {
		seen[u] = struct{}{}
	}
	for u := range f.activities {
		seen[u] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// IsSocial reports whether an activity is tagged social by type or category.
func IsSocial(a model.Activity) bool {
	return strings.EqualFold(a.Category, "social") || strings.EqualFold(a.Type, "social")
}
