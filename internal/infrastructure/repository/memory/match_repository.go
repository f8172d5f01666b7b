package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/matchlog/internal/domain/match"
)

// MatchRepository keeps matches in process memory with the same merge rules as the SQL store.
type MatchRepository struct {
	mu     sync.RWMutex
	nextID int64
	byExt  map[int64]match.Match
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	repo := &MatchRepository{byExt: make(map[int64]match.Match, len(seed))}
	for _, item := range seed {
		repo.nextID++
		item.ID = repo.nextID
		repo.byExt[item.ExternalID] = cloneMatch(item)
	}
	return repo
}

func (r *MatchRepository) Upsert(_ context.Context, item match.Match) (match.Match, error) {
	if err := item.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("%w: match %d: %w", match.ErrConstraintViolation, item.ExternalID, err)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.RecordedAt
	}
	if item.Watched {
		item = item.MarkWatched(item.UpdatedAt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byExt[item.ExternalID]
	if !ok {
		r.nextID++
		item.ID = r.nextID
		r.byExt[item.ExternalID] = cloneMatch(item)
		return cloneMatch(item), nil
	}

	merged := existing.WithUpstream(item)
	merged.Watched = existing.Watched || item.Watched
	if merged.WatchedAt == nil {
		merged.WatchedAt = cloneTime(item.WatchedAt)
	}
	merged.UpdatedAt = item.UpdatedAt
	r.byExt[item.ExternalID] = cloneMatch(merged)
	return cloneMatch(merged), nil
}

func (r *MatchRepository) FindByExternalID(_ context.Context, externalID int64) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byExt[externalID]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) ListAll(ctx context.Context) ([]match.Match, error) {
	return r.List(ctx, match.Filter{})
}

func (r *MatchRepository) List(_ context.Context, filter match.Filter) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team := strings.ToLower(strings.TrimSpace(filter.Team))
	out := make([]match.Match, 0, len(r.byExt))
	for _, item := range r.byExt {
		if team != "" &&
			!strings.Contains(strings.ToLower(item.HomeTeam), team) &&
			!strings.Contains(strings.ToLower(item.AwayTeam), team) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, item.Status) {
			continue
		}
		if filter.WatchedOnly && !item.Watched {
			continue
		}
		out = append(out, cloneMatch(item))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchDate != out[j].MatchDate {
			return out[i].MatchDate > out[j].MatchDate
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) UpdateNote(_ context.Context, externalID int64, note string) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byExt[externalID]
	if !ok {
		return match.Match{}, false, nil
	}
	item.UserNote = note
	r.byExt[externalID] = item
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) Unwatch(_ context.Context, externalID int64) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byExt[externalID]
	if !ok {
		return match.Match{}, false, nil
	}
	item = item.Unwatched()
	r.byExt[externalID] = item
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byExt), nil
}

func cloneMatch(item match.Match) match.Match {
	item.KickoffAt = cloneTime(item.KickoffAt)
	item.WatchedAt = cloneTime(item.WatchedAt)
	item.ScoreHome = cloneInt(item.ScoreHome)
	item.ScoreAway = cloneInt(item.ScoreAway)
	return item
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
