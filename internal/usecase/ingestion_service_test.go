package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/matchlog/internal/domain/match"
	"github.com/riskibarqy/matchlog/internal/infrastructure/repository/memory"
	idgen "github.com/riskibarqy/matchlog/internal/platform/id"
)

type stubFetcher struct {
	mu       sync.Mutex
	byID     map[int64]MatchData
	err      error
	calls    atomic.Int32
	fixtures []MatchData
}

func newStubFetcher(items ...MatchData) *stubFetcher {
	f := &stubFetcher{byID: make(map[int64]MatchData)}
	for _, item := range items {
		f.byID[item.FixtureID] = item
	}
	return f
}

func (f *stubFetcher) set(item MatchData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[item.FixtureID] = item
}

func (f *stubFetcher) FetchMatch(_ context.Context, ref MatchReference) (MatchData, error) {
	f.calls.Add(1)
	if f.err != nil {
		return MatchData{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.byID[ref.FixtureID]
	if !ok {
		return MatchData{}, fmt.Errorf("%w: fixture %d", ErrNotFound, ref.FixtureID)
	}
	return item, nil
}

func (f *stubFetcher) FetchTeamFixtures(_ context.Context, _, _ int64, _ int) ([]MatchData, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.fixtures, nil
}

func newTestIngestion(fetcher MatchFetcher, repo match.Repository, now time.Time) *IngestionService {
	service := NewIngestionService(fetcher, repo, &idgen.SequenceGenerator{Prefix: "pub-"}, IngestionConfig{SyncWorkers: 2}, nil)
	service.now = func() time.Time { return now }
	return service
}

func TestIngestionService_RecordMatch_NewMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(newStubFetcher(sampleMatchData()), repo, now)

	got, err := service.RecordMatch(ctx, "1035001")
	if err != nil {
		t.Fatalf("record match: %v", err)
	}
	if got.ExternalID != 1035001 || got.HomeTeam != "Palmeiras" || got.MatchDate != "2024-05-01" {
		t.Fatalf("unexpected match: %+v", got)
	}
	if !got.Watched || got.UserNote != "" || got.PublicID != "pub-1" {
		t.Fatalf("unexpected user fields: %+v", got)
	}
	if !got.RecordedAt.Equal(now) {
		t.Fatalf("unexpected recorded_at: got=%s want=%s", got.RecordedAt, now)
	}
	if got.WatchedAt == nil || !got.WatchedAt.Equal(now) {
		t.Fatalf("unexpected watched_at: %v", got.WatchedAt)
	}
}

func TestIngestionService_RecordMatch_KeepsFirstWatchedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(newStubFetcher(sampleMatchData()), repo, first)

	if _, err := service.RecordMatch(ctx, "1035001"); err != nil {
		t.Fatalf("record: %v", err)
	}
	service.now = func() time.Time { return first.Add(72 * time.Hour) }
	got, err := service.RecordMatch(ctx, "1035001")
	if err != nil {
		t.Fatalf("re-record: %v", err)
	}
	if got.WatchedAt == nil || !got.WatchedAt.Equal(first) {
		t.Fatalf("watched_at moved on re-ingestion: %v", got.WatchedAt)
	}
}

func TestIngestionService_RecordMatch_PromotesSyncedFixture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	syncedAt := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	fetcher := newStubFetcher(sampleMatchData())
	fetcher.fixtures = []MatchData{sampleMatchData()}
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(fetcher, repo, syncedAt)

	if _, err := service.SyncTeamFixtures(ctx, SyncInput{TeamID: 121, LeagueID: 71, Season: 2024}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	synced, _, _ := repo.FindByExternalID(ctx, 1035001)
	if synced.Watched || synced.WatchedAt != nil {
		t.Fatalf("synced fixture should be unwatched: %+v", synced)
	}

	watchedAt := syncedAt.Add(48 * time.Hour)
	service.now = func() time.Time { return watchedAt }
	got, err := service.RecordMatch(ctx, "1035001")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !got.Watched || got.WatchedAt == nil || !got.WatchedAt.Equal(watchedAt) {
		t.Fatalf("record did not promote synced fixture: %+v", got)
	}
	if got.PublicID != synced.PublicID {
		t.Fatalf("public id changed: %s -> %s", synced.PublicID, got.PublicID)
	}
}

func TestMatchService_Unwatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewMatchRepository(nil)
	fetcher := newStubFetcher(sampleMatchData())
	fetcher.fixtures = []MatchData{sampleMatchData()}
	ingestion := newTestIngestion(fetcher, repo, time.Now())
	service := NewMatchService(repo)

	if _, err := ingestion.RecordMatch(ctx, "1035001"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := service.UpdateNote(ctx, 1035001, "rainy night"); err != nil {
		t.Fatalf("update note: %v", err)
	}

	got, err := service.Unwatch(ctx, 1035001)
	if err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if got.Watched || got.WatchedAt != nil || got.UserNote != "rainy night" {
		t.Fatalf("unexpected match after unwatch: %+v", got)
	}

	if _, err := ingestion.SyncTeamFixtures(ctx, SyncInput{TeamID: 121, LeagueID: 71, Season: 2024}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	after, _, _ := repo.FindByExternalID(ctx, 1035001)
	if after.Watched {
		t.Fatalf("sync re-marked an unwatched match: %+v", after)
	}

	if _, err := service.Unwatch(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIngestionService_RecordMatch_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(newStubFetcher(sampleMatchData()), repo, time.Now())

	first, err := service.RecordMatch(ctx, "1035001")
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := service.RecordMatch(ctx, "id:1035001")
	if err != nil {
		t.Fatalf("second record: %v", err)
	}

	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Fatalf("expected exactly one stored match, got=%d", count)
	}
	if first.PublicID != second.PublicID || !first.RecordedAt.Equal(second.RecordedAt) {
		t.Fatalf("identity changed across re-ingestion: first=%+v second=%+v", first, second)
	}
}

func TestIngestionService_RecordMatch_PreservesNoteOnScoreChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recordedAt := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	repo := memory.NewMatchRepository(nil)
	fetcher := newStubFetcher(sampleMatchData())
	service := newTestIngestion(fetcher, repo, recordedAt)

	if _, err := service.RecordMatch(ctx, "1035001"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, exists, err := repo.UpdateNote(ctx, 1035001, "great game"); err != nil || !exists {
		t.Fatalf("update note: exists=%t err=%v", exists, err)
	}

	corrected := sampleMatchData()
	corrected.GoalsHome, corrected.GoalsAway = intPtr(3), intPtr(1)
	fetcher.set(corrected)
	service.now = func() time.Time { return recordedAt.Add(24 * time.Hour) }

	got, err := service.RecordMatch(ctx, "1035001")
	if err != nil {
		t.Fatalf("re-record: %v", err)
	}
	if got.UserNote != "great game" {
		t.Fatalf("note lost: %q", got.UserNote)
	}
	if *got.ScoreHome != 3 || *got.ScoreAway != 1 {
		t.Fatalf("score not refreshed: %d-%d", *got.ScoreHome, *got.ScoreAway)
	}
	if !got.RecordedAt.Equal(recordedAt) {
		t.Fatalf("recorded_at changed: %s", got.RecordedAt)
	}
}

func TestIngestionService_RecordMatch_PartialScoreStoresNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	data := sampleMatchData()
	data.GoalsAway = nil
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(newStubFetcher(data), repo, time.Now())

	_, err := service.RecordMatch(ctx, "1035001")
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	if count, _ := repo.Count(ctx); count != 0 {
		t.Fatalf("expected nothing stored, got=%d", count)
	}
}

func TestIngestionService_RecordMatch_InvalidReferenceSkipsFetch(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(sampleMatchData())
	service := newTestIngestion(fetcher, memory.NewMatchRepository(nil), time.Now())

	for _, raw := range []string{"", "abc", "id:-4", "team=1", "team=1&date=2024-13-40", "foo=1&date=2024-05-01"} {
		_, err := service.RecordMatch(context.Background(), raw)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("reference %q: expected ErrValidation, got %v", raw, err)
		}
	}
	if calls := fetcher.calls.Load(); calls != 0 {
		t.Fatalf("expected no fetch calls, got=%d", calls)
	}
}

func TestIngestionService_RecordMatch_ConcurrentReingestionKeepsNote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(newStubFetcher(sampleMatchData()), repo, time.Now())

	if _, err := service.RecordMatch(ctx, "1035001"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, _, err := repo.UpdateNote(ctx, 1035001, "great game"); err != nil {
		t.Fatalf("update note: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.RecordMatch(ctx, "1035001"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent record: %v", err)
	}

	got, exists, _ := repo.FindByExternalID(ctx, 1035001)
	if !exists || got.UserNote != "great game" {
		t.Fatalf("note lost after concurrent re-ingestion: %+v", got)
	}
	if count, _ := repo.Count(ctx); count != 1 {
		t.Fatalf("expected one row, got=%d", count)
	}
}

func TestIngestionService_SyncTeamFixtures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	watched := sampleMatchData()

	upcoming := sampleMatchData()
	upcoming.FixtureID = 1035010
	upcoming.Kickoff = "2024-06-10T19:00:00-03:00"
	upcoming.StatusShort = "NS"
	upcoming.GoalsHome, upcoming.GoalsAway = nil, nil

	broken := sampleMatchData()
	broken.FixtureID = 1035020
	broken.GoalsAway = nil

	fetcher := newStubFetcher(watched)
	fetcher.fixtures = []MatchData{broken, upcoming, watched}
	repo := memory.NewMatchRepository(nil)
	service := newTestIngestion(fetcher, repo, time.Now())

	if _, err := service.RecordMatch(ctx, "1035001"); err != nil {
		t.Fatalf("record: %v", err)
	}

	result, err := service.SyncTeamFixtures(ctx, SyncInput{TeamID: 121, LeagueID: 71, Season: 2024})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Fetched != 3 || result.CreatedCount != 1 || result.UpdatedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Fixtures[0].ExternalID != 1035001 || result.Fixtures[2].Error == "" {
		t.Fatalf("unexpected fixture rows: %+v", result.Fixtures)
	}

	imported, exists, _ := repo.FindByExternalID(ctx, 1035010)
	if !exists || imported.Watched {
		t.Fatalf("imported fixture should exist unwatched: %+v", imported)
	}
	kept, _, _ := repo.FindByExternalID(ctx, 1035001)
	if !kept.Watched {
		t.Fatalf("sync must not clear watched flag")
	}
}

func TestIngestionService_SyncTeamFixtures_ValidatesInput(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	service := newTestIngestion(fetcher, memory.NewMatchRepository(nil), time.Now())

	_, err := service.SyncTeamFixtures(context.Background(), SyncInput{TeamID: 121, LeagueID: 71, Season: 24})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if fetcher.calls.Load() != 0 {
		t.Fatalf("expected no provider call")
	}
}
