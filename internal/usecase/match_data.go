package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/matchlog/internal/domain/match"
)

// MatchData is one fixture as decoded from the provider, before normalization.
type MatchData struct {
	FixtureID    int64
	Kickoff      string
	Venue        string
	VenueCity    string
	StatusShort  string
	StatusLong   string
	LeagueID     int64
	LeagueName   string
	Season       int
	Round        string
	HomeTeamID   int64
	HomeTeam     string
	AwayTeamID   int64
	AwayTeam     string
	GoalsHome    *int
	GoalsAway    *int
	HalftimeHome *int
	HalftimeAway *int
	FulltimeHome *int
	FulltimeAway *int
}

// NormalizeMatchData converts provider data into a match carrying only upstream fields.
// The calendar date is taken in the kickoff's own UTC offset.
func NormalizeMatchData(data MatchData) (match.Match, error) {
	item := match.Match{
		ExternalID:         data.FixtureID,
		HomeTeam:           strings.TrimSpace(data.HomeTeam),
		AwayTeam:           strings.TrimSpace(data.AwayTeam),
		HomeTeamExternalID: data.HomeTeamID,
		AwayTeamExternalID: data.AwayTeamID,
		ScoreHome:          data.GoalsHome,
		ScoreAway:          data.GoalsAway,
		Venue:              strings.TrimSpace(data.Venue),
		VenueCity:          strings.TrimSpace(data.VenueCity),
		LeagueExternalID:   data.LeagueID,
		LeagueName:         strings.TrimSpace(data.LeagueName),
		Season:             data.Season,
		Round:              strings.TrimSpace(data.Round),
		Status:             match.StatusFromShortCode(data.StatusShort),
	}

	date, kickoff, err := parseKickoff(data.Kickoff)
	if err != nil {
		return match.Match{}, fmt.Errorf("%w: fixture %d: %w", ErrConstraintViolation, data.FixtureID, err)
	}
	item.MatchDate = date
	item.KickoffAt = kickoff

	if err := item.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("%w: fixture %d: %w", ErrConstraintViolation, data.FixtureID, err)
	}
	return item, nil
}

func parseKickoff(raw string) (string, *time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, match.ErrInvalidDate
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.Format(match.DateLayout), &ts, nil
	}
	if day, err := time.Parse(match.DateLayout, raw); err == nil {
		return day.Format(match.DateLayout), nil, nil
	}
	return "", nil, match.ErrInvalidDate
}
