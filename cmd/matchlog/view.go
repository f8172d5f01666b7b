package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jszwec/csvutil"
	"github.com/riskibarqy/matchlog/internal/domain/competition"
	"github.com/riskibarqy/matchlog/internal/domain/match"
)

// matchView is the printable shape of a stored match, shared by --json and export.
type matchView struct {
	ExternalID       int64  `json:"external_id" csv:"external_id"`
	PublicID         string `json:"public_id" csv:"public_id"`
	MatchDate        string `json:"match_date" csv:"match_date"`
	KickoffAt        string `json:"kickoff_at,omitempty" csv:"kickoff_at"`
	HomeTeam         string `json:"home_team" csv:"home_team"`
	AwayTeam         string `json:"away_team" csv:"away_team"`
	ScoreHome        *int   `json:"score_home" csv:"score_home,omitempty"`
	ScoreAway        *int   `json:"score_away" csv:"score_away,omitempty"`
	Status           string `json:"status" csv:"status"`
	Venue            string `json:"venue,omitempty" csv:"venue"`
	VenueCity        string `json:"venue_city,omitempty" csv:"venue_city"`
	LeagueExternalID int64  `json:"league_id,omitempty" csv:"league_id,omitempty"`
	LeagueName       string `json:"league_name,omitempty" csv:"league_name"`
	Season           int    `json:"season,omitempty" csv:"season,omitempty"`
	Round            string `json:"round,omitempty" csv:"round"`
	Watched          bool   `json:"watched" csv:"watched"`
	WatchedAt        string `json:"watched_at,omitempty" csv:"watched_at"`
	UserNote         string `json:"user_note" csv:"user_note"`
	RecordedAt       string `json:"recorded_at" csv:"recorded_at"`
	UpdatedAt        string `json:"updated_at" csv:"updated_at"`
}

func toMatchView(item match.Match) matchView {
	view := matchView{
		ExternalID:       item.ExternalID,
		PublicID:         item.PublicID,
		MatchDate:        item.MatchDate,
		HomeTeam:         item.HomeTeam,
		AwayTeam:         item.AwayTeam,
		ScoreHome:        item.ScoreHome,
		ScoreAway:        item.ScoreAway,
		Status:           item.Status,
		Venue:            item.Venue,
		VenueCity:        item.VenueCity,
		LeagueExternalID: item.LeagueExternalID,
		LeagueName:       item.LeagueName,
		Season:           item.Season,
		Round:            item.Round,
		Watched:          item.Watched,
		UserNote:         item.UserNote,
		RecordedAt:       item.RecordedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.KickoffAt != nil {
		view.KickoffAt = item.KickoffAt.Format(time.RFC3339)
	}
	if item.WatchedAt != nil {
		view.WatchedAt = item.WatchedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func toMatchViews(items []match.Match) []matchView {
	out := make([]matchView, 0, len(items))
	for _, item := range items {
		out = append(out, toMatchView(item))
	}
	return out
}

type competitionView struct {
	Slug     string `json:"slug"`
	LeagueID int64  `json:"league_id"`
	Name     string `json:"name"`
}

func toCompetitionViews(items []competition.Competition) []competitionView {
	out := make([]competitionView, 0, len(items))
	for _, item := range items {
		out = append(out, competitionView{Slug: item.Slug, LeagueID: item.LeagueID, Name: item.Name})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

func writeCSV(w io.Writer, items []match.Match) error {
	views := toMatchViews(items)
	if len(views) == 0 {
		header, err := csvutil.Header(matchView{}, "csv")
		if err != nil {
			return fmt.Errorf("build csv header: %w", err)
		}
		_, err = io.WriteString(w, strings.Join(header, ",")+"\n")
		return err
	}

	raw, err := csvutil.Marshal(views)
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// summary renders one match the way the record and show commands print it.
func summary(item match.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %s %s", item.MatchDate, item.HomeTeam, scoreline(item), item.AwayTeam)
	fmt.Fprintf(&b, "  [%s]", item.Status)
	if item.LeagueName != "" {
		fmt.Fprintf(&b, "  %s", item.LeagueName)
		if item.Round != "" {
			fmt.Fprintf(&b, " (%s)", item.Round)
		}
	}
	if item.Venue != "" {
		fmt.Fprintf(&b, "  @ %s", item.Venue)
		if item.VenueCity != "" {
			fmt.Fprintf(&b, ", %s", item.VenueCity)
		}
	}
	fmt.Fprintf(&b, "  #%d", item.ExternalID)
	if item.Watched {
		b.WriteString("  watched")
		if item.WatchedAt != nil {
			fmt.Fprintf(&b, " %s", item.WatchedAt.UTC().Format(match.DateLayout))
		}
	}
	if item.UserNote != "" {
		fmt.Fprintf(&b, "\n    note: %s", item.UserNote)
	}
	return b.String()
}

func scoreline(item match.Match) string {
	if !item.IsScored() {
		return "vs"
	}
	score := strconv.Itoa(*item.ScoreHome) + "-" + strconv.Itoa(*item.ScoreAway)
	switch {
	case match.IsFinishedStatus(item.Status):
		return score
	case match.IsLiveStatus(item.Status):
		return score + " (live)"
	default:
		return score + " (" + strings.ToLower(item.Status) + ")"
	}
}
