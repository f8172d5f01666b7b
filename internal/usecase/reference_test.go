package usecase

import (
	"errors"
	"testing"
)

func TestParseReference(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want MatchReference
	}{
		{raw: "12345", want: MatchReference{FixtureID: 12345}},
		{raw: " id:12345 ", want: MatchReference{FixtureID: 12345}},
		{raw: "ID: 77", want: MatchReference{FixtureID: 77}},
		{raw: "team=121&date=2024-05-01", want: MatchReference{TeamID: 121, Date: "2024-05-01"}},
		{raw: "team=121&date=2024-05-01&league=brasileirao_a&season=2024", want: MatchReference{TeamID: 121, Date: "2024-05-01", LeagueID: 71, Season: 2024}},
		{raw: "date=2024-05-01&team=121&league=13", want: MatchReference{TeamID: 121, Date: "2024-05-01", LeagueID: 13}},
	}

	for _, tc := range cases {
		got, err := ParseReference(tc.raw)
		if err != nil {
			t.Fatalf("ParseReference(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseReference(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseReference_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"   ",
		"0",
		"-1",
		"fixture:12",
		"12a",
		"team=121",
		"date=2024-05-01",
		"team=x&date=2024-05-01",
		"team=121&date=01-05-2024",
		"team=121&date=2024-05-01&league=unknown",
		"team=121&date=2024-05-01&season=99",
		"team=121&team=122&date=2024-05-01",
		"team=121&date=2024-05-01&venue=x",
	} {
		if _, err := ParseReference(raw); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseReference(%q): expected ErrValidation, got %v", raw, err)
		}
	}
}

func TestMatchReference_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ref := range []MatchReference{
		{FixtureID: 9},
		{TeamID: 121, Date: "2024-05-01", LeagueID: 71, Season: 2024},
	} {
		got, err := ParseReference(ref.String())
		if err != nil {
			t.Fatalf("parse %q: %v", ref.String(), err)
		}
		if got != ref {
			t.Fatalf("round trip mismatch: got=%+v want=%+v", got, ref)
		}
	}
}
