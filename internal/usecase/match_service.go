package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/riskibarqy/matchlog/internal/domain/match"
)

const maxUserNoteLength = 2000

type MatchService struct {
	repo match.Repository
}

func NewMatchService(repo match.Repository) *MatchService {
	return &MatchService{repo: repo}
}

// ListAll returns every stored match, most recent match date first.
func (s *MatchService) ListAll(ctx context.Context) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListAll")
	defer span.End()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return items, nil
}

func (s *MatchService) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.List")
	defer span.End()

	filter.Team = strings.TrimSpace(filter.Team)
	var statuses []string
	for _, status := range filter.Statuses {
		if strings.TrimSpace(status) == "" {
			continue
		}
		status = match.NormalizeStatus(status)
		if !match.IsValidStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		statuses = append(statuses, status)
	}
	filter.Statuses = statuses
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", ErrValidation)
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return items, nil
}

func (s *MatchService) Find(ctx context.Context, externalID int64) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Find", attrExternalID.Int64(externalID))
	defer span.End()

	if externalID <= 0 {
		return match.Match{}, fmt.Errorf("%w: external id must be greater than zero", ErrValidation)
	}

	item, exists, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return match.Match{}, fmt.Errorf("find match %d: %w", externalID, err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match %d is not recorded", ErrNotFound, externalID)
	}
	return item, nil
}

// UpdateNote replaces the user note of a stored match. An empty note clears it.
func (s *MatchService) UpdateNote(ctx context.Context, externalID int64, note string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.UpdateNote", attrExternalID.Int64(externalID))
	defer span.End()

	if externalID <= 0 {
		return match.Match{}, fmt.Errorf("%w: external id must be greater than zero", ErrValidation)
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxUserNoteLength {
		return match.Match{}, fmt.Errorf("%w: note exceeds %d characters", ErrValidation, maxUserNoteLength)
	}

	item, exists, err := s.repo.UpdateNote(ctx, externalID, note)
	if err != nil {
		return match.Match{}, fmt.Errorf("update note for match %d: %w", externalID, err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match %d is not recorded", ErrNotFound, externalID)
	}
	return item, nil
}

// Unwatch clears the watched flag and date of a stored match. The note and
// upstream fields are kept, and later syncs do not set the flag again.
func (s *MatchService) Unwatch(ctx context.Context, externalID int64) (_ match.Match, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Unwatch", attrExternalID.Int64(externalID))
	defer func() { endUsecaseSpan(span, err) }()

	if externalID <= 0 {
		return match.Match{}, fmt.Errorf("%w: external id must be greater than zero", ErrValidation)
	}

	item, exists, err := s.repo.Unwatch(ctx, externalID)
	if err != nil {
		return match.Match{}, fmt.Errorf("unwatch match %d: %w", externalID, err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match %d is not recorded", ErrNotFound, externalID)
	}
	return item, nil
}

func (s *MatchService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}
