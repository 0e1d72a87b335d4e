package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

type timedItem struct {
	item      types.PruneItem
	createdAt time.Time
}

// SelectDeletionCandidates returns the items a retention policy marks for
// deletion, ordered most recent first.
//
// The input is never mutated. Items with equal creation timestamps keep
// their input relative order, so the selection is deterministic for a
// deterministic source ordering. In count mode the N most recent items are
// preserved and the rest returned; in age mode every item created strictly
// before the effective cutoff is returned, and an item created exactly at
// the cutoff is retained.
//
// A timestamp that does not parse aborts the whole selection; no partial
// candidate list is returned.
func SelectDeletionCandidates(items []types.PruneItem, policy types.RetentionPolicy, now time.Time) ([]types.PruneItem, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sorted, err := sortByRecency(items)
	if err != nil {
		return nil, err
	}

	if policy.Mode() == types.PolicyByCount {
		retain := policy.RetainCount()
		if retain >= len(sorted) {
			return nil, nil
		}
		candidates := make([]types.PruneItem, 0, len(sorted)-retain)
		for _, timed := range sorted[retain:] {
			candidates = append(candidates, timed.item)
		}
		log.Debug().
			Int("total", len(sorted)).
			Int("retain", retain).
			Int("candidates", len(candidates)).
			Msg("count-based selection completed")
		return candidates, nil
	}

	cutoff := policy.EffectiveCutoff(now)
	var candidates []types.PruneItem
	for _, timed := range sorted {
		if timed.createdAt.Before(cutoff) {
			candidates = append(candidates, timed.item)
		}
	}
	log.Debug().
		Int("total", len(sorted)).
		Time("cutoff", cutoff).
		Int("candidates", len(candidates)).
		Msg("age-based selection completed")
	return candidates, nil
}

func sortByRecency(items []types.PruneItem) ([]timedItem, error) {
	sorted := make([]timedItem, 0, len(items))
	for _, item := range items {
		createdAt, err := parseCreatedAt(item.CreatedAt)
		if err != nil {
			return nil, err
		}
		sorted = append(sorted, timedItem{item: item, createdAt: createdAt})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].createdAt.After(sorted[j].createdAt)
	})
	return sorted, nil
}

// parseCreatedAt parses the wire timestamp strictly. GitLab emits ISO-8601
// with fractional seconds and a Z suffix ("2024-03-01T12:00:00.000Z").
func parseCreatedAt(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s: %q", malformedTimestampMsg, value)).
			WithCause(err)
	}
	return parsed.UTC(), nil
}
