package usecase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchlog/internal/domain/competition"
)

// MatchReference identifies one upstream fixture, either directly by id or by
// a team playing on a given date.
type MatchReference struct {
	FixtureID int64  `validate:"required_without=TeamID,excluded_with=TeamID,omitempty,gt=0"`
	TeamID    int64  `validate:"required_without=FixtureID,omitempty,gt=0"`
	Date      string `validate:"required_with=TeamID,excluded_with=FixtureID,omitempty,datetime=2006-01-02"`
	LeagueID  int64  `validate:"excluded_with=FixtureID,omitempty,gt=0"`
	Season    int    `validate:"excluded_with=FixtureID,omitempty,gte=1900,lte=2100"`
}

var (
	referenceValidatorOnce sync.Once
	referenceValidator     *validator.Validate
)

func getReferenceValidator() *validator.Validate {
	referenceValidatorOnce.Do(func() {
		referenceValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return referenceValidator
}

var referenceQueryKeys = map[string]struct{}{
	"team":   {},
	"date":   {},
	"league": {},
	"season": {},
}

// ParseReference accepts "12345", "id:12345" or
// "team=<id>&date=YYYY-MM-DD[&league=<id|slug>][&season=<yyyy>]".
func ParseReference(raw string) (MatchReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MatchReference{}, fmt.Errorf("%w: match reference is required", ErrValidation)
	}

	var ref MatchReference
	if strings.Contains(raw, "=") {
		parsed, err := parseQueryReference(raw)
		if err != nil {
			return MatchReference{}, err
		}
		ref = parsed
	} else {
		idText := raw
		if prefix, rest, ok := strings.Cut(raw, ":"); ok {
			if !strings.EqualFold(strings.TrimSpace(prefix), "id") {
				return MatchReference{}, fmt.Errorf("%w: unknown reference prefix %q", ErrValidation, prefix)
			}
			idText = strings.TrimSpace(rest)
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return MatchReference{}, fmt.Errorf("%w: fixture id %q is not a number", ErrValidation, idText)
		}
		ref.FixtureID = id
	}

	if err := ref.Validate(); err != nil {
		return MatchReference{}, err
	}
	return ref, nil
}

func parseQueryReference(raw string) (MatchReference, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return MatchReference{}, fmt.Errorf("%w: malformed reference query: %v", ErrValidation, err)
	}

	var ref MatchReference
	for key, items := range values {
		if _, ok := referenceQueryKeys[key]; !ok {
			return MatchReference{}, fmt.Errorf("%w: unknown reference key %q", ErrValidation, key)
		}
		if len(items) != 1 {
			return MatchReference{}, fmt.Errorf("%w: reference key %q must appear once", ErrValidation, key)
		}
		value := strings.TrimSpace(items[0])

		switch key {
		case "team":
			ref.TeamID, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return MatchReference{}, fmt.Errorf("%w: team %q is not a number", ErrValidation, value)
			}
		case "date":
			ref.Date = value
		case "league":
			leagueID, ok := competition.ResolveLeagueID(value)
			if !ok {
				return MatchReference{}, fmt.Errorf("%w: unknown league %q", ErrValidation, value)
			}
			ref.LeagueID = leagueID
		case "season":
			ref.Season, err = strconv.Atoi(value)
			if err != nil {
				return MatchReference{}, fmt.Errorf("%w: season %q is not a number", ErrValidation, value)
			}
		}
	}
	return ref, nil
}

func (r MatchReference) Validate() error {
	if err := getReferenceValidator().Struct(r); err != nil {
		return fmt.Errorf("%w: invalid match reference: %v", ErrValidation, err)
	}
	return nil
}

func (r MatchReference) IsByID() bool {
	return r.FixtureID > 0
}

// String renders the reference in the form ParseReference accepts.
func (r MatchReference) String() string {
	if r.IsByID() {
		return "id:" + strconv.FormatInt(r.FixtureID, 10)
	}

	values := url.Values{}
	values.Set("team", strconv.FormatInt(r.TeamID, 10))
	values.Set("date", r.Date)
	if r.LeagueID > 0 {
		values.Set("league", strconv.FormatInt(r.LeagueID, 10))
	}
	if r.Season > 0 {
		values.Set("season", strconv.Itoa(r.Season))
	}
	return values.Encode()
}

