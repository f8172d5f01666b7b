package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/riskibarqy/matchlog/internal/domain/match"
)

const timestampLayout = time.RFC3339Nano

type matchTableModel struct {
	ID                 int64          `db:"id,readonly"`
	PublicID           string         `db:"public_id"`
	ExternalID         int64          `db:"external_id"`
	HomeTeam           string         `db:"home_team"`
	AwayTeam           string         `db:"away_team"`
	HomeTeamExternalID sql.NullInt64  `db:"home_team_external_id"`
	AwayTeamExternalID sql.NullInt64  `db:"away_team_external_id"`
	MatchDate          string         `db:"match_date"`
	KickoffAt          sql.NullString `db:"kickoff_at"`
	ScoreHome          sql.NullInt64  `db:"score_home"`
	ScoreAway          sql.NullInt64  `db:"score_away"`
	Venue              string         `db:"venue"`
	VenueCity          string         `db:"venue_city"`
	LeagueExternalID   sql.NullInt64  `db:"league_external_id"`
	LeagueName         string         `db:"league_name"`
	Season             sql.NullInt64  `db:"season"`
	Round              string         `db:"round"`
	Status             string         `db:"status"`
	RecordedAt         string         `db:"recorded_at"`
	UpdatedAt          string         `db:"updated_at"`
	UserNote           string         `db:"user_note"`
	Watched            bool           `db:"watched"`
	WatchedAt          sql.NullString `db:"watched_at"`
}

// upstreamColumns are refreshed on conflict. Everything else belongs to the user
// or is fixed at insert time.
var upstreamColumns = []string{
	"home_team",
	"away_team",
	"home_team_external_id",
	"away_team_external_id",
	"match_date",
	"kickoff_at",
	"score_home",
	"score_away",
	"venue",
	"venue_city",
	"league_external_id",
	"league_name",
	"season",
	"round",
	"status",
	"updated_at",
}

func toMatchTableModel(item match.Match) matchTableModel {
	row := matchTableModel{
		ID:                 item.ID,
		PublicID:           item.PublicID,
		ExternalID:         item.ExternalID,
		HomeTeam:           item.HomeTeam,
		AwayTeam:           item.AwayTeam,
		HomeTeamExternalID: positiveInt64(item.HomeTeamExternalID),
		AwayTeamExternalID: positiveInt64(item.AwayTeamExternalID),
		MatchDate:          item.MatchDate,
		ScoreHome:          intPtrToNull(item.ScoreHome),
		ScoreAway:          intPtrToNull(item.ScoreAway),
		Venue:              item.Venue,
		VenueCity:          item.VenueCity,
		LeagueExternalID:   positiveInt64(item.LeagueExternalID),
		LeagueName:         item.LeagueName,
		Season:             positiveInt64(int64(item.Season)),
		Round:              item.Round,
		Status:             item.Status,
		RecordedAt:         item.RecordedAt.UTC().Format(timestampLayout),
		UpdatedAt:          item.UpdatedAt.UTC().Format(timestampLayout),
		UserNote:           item.UserNote,
		Watched:            item.Watched,
	}
	if item.KickoffAt != nil {
		row.KickoffAt = sql.NullString{String: item.KickoffAt.Format(time.RFC3339), Valid: true}
	}
	if item.Watched && item.WatchedAt != nil {
		row.WatchedAt = sql.NullString{String: item.WatchedAt.UTC().Format(timestampLayout), Valid: true}
	}
	return row
}

func (row matchTableModel) toDomain() (match.Match, error) {
	out := match.Match{
		ID:                 row.ID,
		PublicID:           row.PublicID,
		ExternalID:         row.ExternalID,
		HomeTeam:           row.HomeTeam,
		AwayTeam:           row.AwayTeam,
		HomeTeamExternalID: row.HomeTeamExternalID.Int64,
		AwayTeamExternalID: row.AwayTeamExternalID.Int64,
		MatchDate:          row.MatchDate,
		ScoreHome:          nullToIntPtr(row.ScoreHome),
		ScoreAway:          nullToIntPtr(row.ScoreAway),
		Venue:              row.Venue,
		VenueCity:          row.VenueCity,
		LeagueExternalID:   row.LeagueExternalID.Int64,
		LeagueName:         row.LeagueName,
		Season:             int(row.Season.Int64),
		Round:              row.Round,
		Status:             row.Status,
		UserNote:           row.UserNote,
		Watched:            row.Watched,
	}

	var err error
	if out.RecordedAt, err = time.Parse(timestampLayout, row.RecordedAt); err != nil {
		return match.Match{}, fmt.Errorf("parse recorded_at of match %d: %w", row.ExternalID, err)
	}
	if out.UpdatedAt, err = time.Parse(timestampLayout, row.UpdatedAt); err != nil {
		return match.Match{}, fmt.Errorf("parse updated_at of match %d: %w", row.ExternalID, err)
	}
	if row.KickoffAt.Valid && row.KickoffAt.String != "" {
		kickoff, err := time.Parse(time.RFC3339, row.KickoffAt.String)
		if err != nil {
			return match.Match{}, fmt.Errorf("parse kickoff_at of match %d: %w", row.ExternalID, err)
		}
		out.KickoffAt = &kickoff
	}
	if row.WatchedAt.Valid && row.WatchedAt.String != "" {
		watchedAt, err := time.Parse(timestampLayout, row.WatchedAt.String)
		if err != nil {
			return match.Match{}, fmt.Errorf("parse watched_at of match %d: %w", row.ExternalID, err)
		}
		out.WatchedAt = &watchedAt
	}
	return out, nil
}

func positiveInt64(v int64) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullToIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}
