package match

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// DateLayout is the canonical calendar date form stored for every match.
const DateLayout = "2006-01-02"

var (
	ErrMissingExternalID = errors.New("external id must be greater than zero")
	ErrMissingTeam       = errors.New("home and away team names are required")
	ErrInvalidDate       = errors.New("match date must be an ISO-8601 calendar date")
	ErrPartialScore      = errors.New("score must have both sides or neither")
	ErrNegativeScore     = errors.New("score cannot be negative")
	ErrWatchedAtMismatch = errors.New("watched date is only set on watched matches")

	// ErrConstraintViolation marks a match that breaks a stored-data invariant.
	// Stores wrap validation failures with it.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Match is one recorded football match.
//
// Fields up to Status are refreshed from upstream on every ingestion. RecordedAt,
// PublicID, UserNote, Watched and WatchedAt belong to the local user and survive
// re-ingestion.
type Match struct {
	ID                 int64
	PublicID           string
	ExternalID         int64
	HomeTeam           string
	AwayTeam           string
	HomeTeamExternalID int64
	AwayTeamExternalID int64
	MatchDate          string
	KickoffAt          *time.Time
	ScoreHome          *int
	ScoreAway          *int
	Venue              string
	VenueCity          string
	LeagueExternalID   int64
	LeagueName         string
	Season             int
	Round              string
	Status             string
	RecordedAt         time.Time
	UpdatedAt          time.Time
	UserNote           string
	Watched            bool
	// WatchedAt is when the match was first marked watched. Nil while unwatched.
	WatchedAt *time.Time
}

// Validate checks the invariants every stored match must satisfy.
func (m Match) Validate() error {
	if m.ExternalID <= 0 {
		return ErrMissingExternalID
	}
	if strings.TrimSpace(m.HomeTeam) == "" || strings.TrimSpace(m.AwayTeam) == "" {
		return ErrMissingTeam
	}
	if _, err := time.Parse(DateLayout, m.MatchDate); err != nil {
		return ErrInvalidDate
	}
	if m.WatchedAt != nil && !m.Watched {
		return ErrWatchedAtMismatch
	}
	return ValidateScore(m.ScoreHome, m.ScoreAway)
}

func ValidateScore(home, away *int) error {
	if (home == nil) != (away == nil) {
		return ErrPartialScore
	}
	if home != nil && (*home < 0 || *away < 0) {
		return ErrNegativeScore
	}
	return nil
}

func (m Match) IsScored() bool {
	return m.ScoreHome != nil && m.ScoreAway != nil
}

// WithUpstream returns m with every upstream-derived field taken from fresh.
// Identity and user-authored fields of m are kept.
func (m Match) WithUpstream(fresh Match) Match {
	m.ExternalID = fresh.ExternalID
	m.HomeTeam = fresh.HomeTeam
	m.AwayTeam = fresh.AwayTeam
	m.HomeTeamExternalID = fresh.HomeTeamExternalID
	m.AwayTeamExternalID = fresh.AwayTeamExternalID
	m.MatchDate = fresh.MatchDate
	m.KickoffAt = fresh.KickoffAt
	m.ScoreHome = fresh.ScoreHome
	m.ScoreAway = fresh.ScoreAway
	m.Venue = fresh.Venue
	m.VenueCity = fresh.VenueCity
	m.LeagueExternalID = fresh.LeagueExternalID
	m.LeagueName = fresh.LeagueName
	m.Season = fresh.Season
	m.Round = fresh.Round
	m.Status = fresh.Status
	return m
}

// MarkWatched flags m as watched. An existing watched date is kept.
func (m Match) MarkWatched(at time.Time) Match {
	m.Watched = true
	if m.WatchedAt == nil {
		at = at.UTC()
		m.WatchedAt = &at
	}
	return m
}

// Unwatched clears the watched flag and its date. The note is kept.
func (m Match) Unwatched() Match {
	m.Watched = false
	m.WatchedAt = nil
	return m
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

// StatusFromShortCode maps an upstream short status code onto the local vocabulary.
// Unknown codes are treated as postponed.
func StatusFromShortCode(code string) string {
	switch NormalizeStatus(code) {
	case "FT", "AET", "PEN", StatusFinished:
		return StatusFinished
	case "1H", "2H", "HT", "ET", "BT", "P", "LIVE", "INT", "SUSP":
		return StatusLive
	case "TBD", "NS", StatusScheduled:
		return StatusScheduled
	case "CANC", "ABD", "AWD", "WO", StatusCancelled:
		return StatusCancelled
	default:
		return StatusPostponed
	}
}

func IsLiveStatus(status string) bool {
	return NormalizeStatus(status) == StatusLive
}

func IsFinishedStatus(status string) bool {
	return NormalizeStatus(status) == StatusFinished
}

func IsValidStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusScheduled, StatusLive, StatusFinished, StatusCancelled, StatusPostponed:
		return true
	default:
		return false
	}
}
