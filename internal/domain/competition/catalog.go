package competition

import (
	"sort"
	"strconv"
	"strings"
)

// Competition is a league known by a short slug.
type Competition struct {
	Slug     string
	LeagueID int64
	Name     string
}

var catalog = map[string]Competition{
	"brasileirao_a":  {Slug: "brasileirao_a", LeagueID: 71, Name: "Brasileirão Série A"},
	"brasileirao_b":  {Slug: "brasileirao_b", LeagueID: 72, Name: "Brasileirão Série B"},
	"copa_do_brasil": {Slug: "copa_do_brasil", LeagueID: 73, Name: "Copa do Brasil"},
	"libertadores":   {Slug: "libertadores", LeagueID: 13, Name: "Copa Libertadores"},
	"sul_americana":  {Slug: "sul_americana", LeagueID: 11, Name: "Copa Sul-Americana"},
}

// DefaultSlug is used when a sync request names no competition.
const DefaultSlug = "brasileirao_a"

func Lookup(slug string) (Competition, bool) {
	item, ok := catalog[strings.ToLower(strings.TrimSpace(slug))]
	return item, ok
}

// ResolveLeagueID accepts either a catalogue slug or a positive numeric league id.
func ResolveLeagueID(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if item, ok := Lookup(value); ok {
		return item.LeagueID, true
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// All returns the catalogue ordered by slug.
func All() []Competition {
	out := make([]Competition, 0, len(catalog))
	for _, item := range catalog {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
