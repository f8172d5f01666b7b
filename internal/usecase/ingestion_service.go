package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchlog/internal/domain/match"
	idgen "github.com/riskibarqy/matchlog/internal/platform/id"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// MatchFetcher resolves one reference against the upstream provider.
// Errors are ErrNotFound, ErrRateLimited or ErrTransport.
type MatchFetcher interface {
	FetchMatch(ctx context.Context, ref MatchReference) (MatchData, error)
}

// TeamFixtureFetcher lists every fixture of a team in one competition season.
type TeamFixtureFetcher interface {
	FetchTeamFixtures(ctx context.Context, teamID, leagueID int64, season int) ([]MatchData, error)
}

type IngestionConfig struct {
	SyncWorkers int
}

type IngestionService struct {
	fetcher  MatchFetcher
	fixtures TeamFixtureFetcher
	repo     match.Repository
	idGen    idgen.Generator
	cfg      IngestionConfig
	logger   *logging.Logger
	now      func() time.Time
}

// NewIngestionService builds the service. When fetcher also implements
// TeamFixtureFetcher, SyncTeamFixtures is available.
func NewIngestionService(
	fetcher MatchFetcher,
	repo match.Repository,
	idGen idgen.Generator,
	cfg IngestionConfig,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator()
	}
	if cfg.SyncWorkers <= 0 {
		cfg.SyncWorkers = 4
	}
	fixtures, _ := fetcher.(TeamFixtureFetcher)

	return &IngestionService{
		fetcher:  fetcher,
		fixtures: fixtures,
		repo:     repo,
		idGen:    idGen,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordMatch resolves rawReference upstream and stores the match as watched.
// A stored match keeps its note, watched flag, public id and recorded_at.
func (s *IngestionService) RecordMatch(ctx context.Context, rawReference string) (_ match.Match, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.RecordMatch", attrReference.String(rawReference))
	defer func() { endUsecaseSpan(span, err) }()

	ref, err := ParseReference(rawReference)
	if err != nil {
		return match.Match{}, err
	}

	data, err := s.fetcher.FetchMatch(ctx, ref)
	if err != nil {
		return match.Match{}, fmt.Errorf("fetch match %s: %w", ref, err)
	}

	span.SetAttributes(attrExternalID.Int64(data.FixtureID))

	fresh, err := NormalizeMatchData(data)
	if err != nil {
		return match.Match{}, err
	}

	saved, created, err := s.reconcile(ctx, fresh, true)
	if err != nil {
		return match.Match{}, err
	}

	s.logger.InfoContext(ctx, "match recorded",
		"external_id", saved.ExternalID,
		"created", created,
		"status", saved.Status,
	)
	return saved, nil
}

func (s *IngestionService) reconcile(ctx context.Context, fresh match.Match, watched bool) (match.Match, bool, error) {
	existing, found, err := s.repo.FindByExternalID(ctx, fresh.ExternalID)
	if err != nil {
		return match.Match{}, false, fmt.Errorf("find match %d: %w", fresh.ExternalID, err)
	}

	now := s.now().UTC()
	item := fresh
	if found {
		item = existing.WithUpstream(fresh)
	} else {
		publicID, err := s.idGen.NewID()
		if err != nil {
			return match.Match{}, false, fmt.Errorf("generate public id: %w", err)
		}
		item.PublicID = publicID
		item.RecordedAt = now
		item.UserNote = ""
		item.Watched = false
		item.WatchedAt = nil
	}
	if watched {
		item = item.MarkWatched(now)
	}
	item.UpdatedAt = now

	saved, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return match.Match{}, false, fmt.Errorf("upsert match %d: %w", item.ExternalID, err)
	}
	return saved, !found, nil
}

type SyncInput struct {
	TeamID   int64
	LeagueID int64
	Season   int
}

type SyncFixtureResult struct {
	ExternalID int64  `json:"external_id"`
	Status     string `json:"status"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

type SyncResult struct {
	TeamID       int64               `json:"team_id"`
	LeagueID     int64               `json:"league_id"`
	Season       int                 `json:"season"`
	Fetched      int                 `json:"fetched"`
	CreatedCount int                 `json:"created_count"`
	UpdatedCount int                 `json:"updated_count"`
	FailedCount  int                 `json:"failed_count"`
	Fixtures     []SyncFixtureResult `json:"fixtures"`
}

// SyncTeamFixtures imports a team's season fixtures through the same merge path
// as RecordMatch. Imported rows are not marked watched. Per-fixture failures are
// counted in the result.
func (s *IngestionService) SyncTeamFixtures(ctx context.Context, input SyncInput) (_ SyncResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.SyncTeamFixtures",
		attribute.Int64("matchlog.team.external_id", input.TeamID),
		attribute.Int64("matchlog.league.external_id", input.LeagueID),
		attribute.Int("matchlog.season", input.Season),
	)
	defer func() { endUsecaseSpan(span, err) }()

	if s.fixtures == nil {
		return SyncResult{}, fmt.Errorf("%w: fixture listing is not supported by the configured provider", ErrValidation)
	}
	if input.TeamID <= 0 || input.LeagueID <= 0 {
		return SyncResult{}, fmt.Errorf("%w: team and league are required", ErrValidation)
	}
	if input.Season < 1900 || input.Season > 2100 {
		return SyncResult{}, fmt.Errorf("%w: season %d is out of range", ErrValidation, input.Season)
	}

	items, err := s.fixtures.FetchTeamFixtures(ctx, input.TeamID, input.LeagueID, input.Season)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch team fixtures: %w", err)
	}

	result := SyncResult{
		TeamID:   input.TeamID,
		LeagueID: input.LeagueID,
		Season:   input.Season,
		Fetched:  len(items),
		Fixtures: make([]SyncFixtureResult, 0, len(items)),
	}
	if len(items) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(s.cfg.SyncWorkers)
	if err != nil {
		return SyncResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		createdCount atomic.Int32
		updatedCount atomic.Int32
		failedCount  atomic.Int32
		mu           sync.Mutex
		workers      sync.WaitGroup
	)
	for _, data := range items {
		data := data
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			row := SyncFixtureResult{ExternalID: data.FixtureID}
			saved, created, err := s.syncOne(ctx, data)
			if err != nil {
				failedCount.Add(1)
				row.Error = err.Error()
				s.logger.WarnContext(ctx, "sync fixture failed",
					"external_id", data.FixtureID,
					"kind", KindOf(err),
					"error", err,
				)
			} else {
				row.Status = saved.Status
				row.Created = created
				if created {
					createdCount.Add(1)
				} else {
					updatedCount.Add(1)
				}
			}

			mu.Lock()
			result.Fixtures = append(result.Fixtures, row)
			mu.Unlock()
		}); err != nil {
			workers.Done()
			return SyncResult{}, fmt.Errorf("submit fixture to worker pool: %w", err)
		}
	}
	workers.Wait()

	sort.SliceStable(result.Fixtures, func(i, j int) bool {
		return result.Fixtures[i].ExternalID < result.Fixtures[j].ExternalID
	})
	result.CreatedCount = int(createdCount.Load())
	result.UpdatedCount = int(updatedCount.Load())
	result.FailedCount = int(failedCount.Load())

	s.logger.InfoContext(ctx, "team fixtures synced",
		"team_id", input.TeamID,
		"league_id", input.LeagueID,
		"season", input.Season,
		"fetched", result.Fetched,
		"created", result.CreatedCount,
		"updated", result.UpdatedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func (s *IngestionService) syncOne(ctx context.Context, data MatchData) (match.Match, bool, error) {
	fresh, err := NormalizeMatchData(data)
	if err != nil {
		return match.Match{}, false, err
	}
	return s.reconcile(ctx, fresh, false)
}
