package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/matchlog/internal/domain/match"
	qb "github.com/riskibarqy/matchlog/internal/platform/querybuilder"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

const matchesTable = "matches"

type MatchRepository struct {
	db           *sqlx.DB
	columns      []string
	upsertSuffix string
}

func NewMatchRepository(db *DB) *MatchRepository {
	columns, err := qb.Columns(matchTableModel{})
	if err != nil {
		panic(fmt.Sprintf("matches table model: %v", err))
	}

	sets := make([]string, 0, len(upstreamColumns)+1)
	for _, col := range upstreamColumns {
		sets = append(sets, col+" = excluded."+col)
	}
	sets = append(sets,
		"watched = ("+matchesTable+".watched OR excluded.watched)",
		"watched_at = COALESCE("+matchesTable+".watched_at, excluded.watched_at)",
	)

	return &MatchRepository{
		db:      db.DB,
		columns: columns,
		upsertSuffix: "ON CONFLICT (external_id) DO UPDATE SET " + strings.Join(sets, ", ") +
			" RETURNING " + strings.Join(columns, ", "),
	}
}

// Upsert inserts item or, when its external id is already stored, refreshes the
// upstream columns only. user_note, recorded_at and public_id are never touched
// on conflict. watched can only go from false to true and the first watched_at wins.
func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) (match.Match, error) {
	if err := item.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("%w: match %d: %w", usecase.ErrConstraintViolation, item.ExternalID, err)
	}
	if strings.TrimSpace(item.PublicID) == "" {
		return match.Match{}, fmt.Errorf("%w: match %d: public id is required", usecase.ErrConstraintViolation, item.ExternalID)
	}
	if item.RecordedAt.IsZero() {
		return match.Match{}, fmt.Errorf("%w: match %d: recorded_at is required", usecase.ErrConstraintViolation, item.ExternalID)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.RecordedAt
	}
	if item.Watched {
		item = item.MarkWatched(item.UpdatedAt)
	}

	query, args, err := qb.InsertModel(matchesTable, toMatchTableModel(item), r.upsertSuffix)
	if err != nil {
		return match.Match{}, fmt.Errorf("build upsert match query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, mapError("begin upsert match tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var row matchTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		return match.Match{}, mapError(fmt.Sprintf("upsert match %d", item.ExternalID), err)
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, mapError("commit upsert match tx", err)
	}

	return row.toDomain()
}

func (r *MatchRepository) FindByExternalID(ctx context.Context, externalID int64) (match.Match, bool, error) {
	query, args, err := qb.Select(r.columns...).From(matchesTable).
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match by external id query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, mapError(fmt.Sprintf("select match %d", externalID), err)
	}

	item, err := row.toDomain()
	if err != nil {
		return match.Match{}, false, err
	}
	return item, true, nil
}

func (r *MatchRepository) ListAll(ctx context.Context) ([]match.Match, error) {
	return r.List(ctx, match.Filter{})
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	conditions := make([]qb.Condition, 0, 3)
	if team := strings.TrimSpace(filter.Team); team != "" {
		conditions = append(conditions, qb.ContainsFold(team, "home_team", "away_team"))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]any, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, status)
		}
		conditions = append(conditions, qb.In("status", statuses))
	}
	if filter.WatchedOnly {
		conditions = append(conditions, qb.Eq("watched", true))
	}

	query, args, err := qb.Select(r.columns...).From(matchesTable).
		Where(conditions...).
		OrderBy("match_date DESC", "external_id ASC").
		Limit(filter.Limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("list matches", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// UpdateNote replaces the user note of a stored match. The bool is false when no
// match has externalID.
func (r *MatchRepository) UpdateNote(ctx context.Context, externalID int64, note string) (match.Match, bool, error) {
	query, args, err := qb.Update(matchesTable).
		Set("user_note", note).
		Where(qb.Eq("external_id", externalID)).
		Suffix("RETURNING " + strings.Join(r.columns, ", ")).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build update match note query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, mapError(fmt.Sprintf("update note of match %d", externalID), err)
	}

	item, err := row.toDomain()
	if err != nil {
		return match.Match{}, false, err
	}
	return item, true, nil
}

// Unwatch clears watched and watched_at of a stored match. The bool is false when
// no match has externalID.
func (r *MatchRepository) Unwatch(ctx context.Context, externalID int64) (match.Match, bool, error) {
	query, args, err := qb.Update(matchesTable).
		Set("watched", false).
		SetExpr("watched_at", "NULL").
		Where(qb.Eq("external_id", externalID)).
		Suffix("RETURNING " + strings.Join(r.columns, ", ")).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build unwatch match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, mapError(fmt.Sprintf("unwatch match %d", externalID), err)
	}

	item, err := row.toDomain()
	if err != nil {
		return match.Match{}, false, err
	}
	return item, true, nil
}

func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+matchesTable); err != nil {
		return 0, mapError("count matches", err)
	}
	return count, nil
}
