package apifootball

type envelope[T any] struct {
	Get      string `json:"get"`
	Errors   any    `json:"errors"`
	Results  int    `json:"results"`
	Response []T    `json:"response"`
}

type fixtureItem struct {
	Fixture fixtureInfo `json:"fixture"`
	League  leagueInfo  `json:"league"`
	Teams   struct {
		Home teamSide `json:"home"`
		Away teamSide `json:"away"`
	} `json:"teams"`
	Goals scorePair `json:"goals"`
	Score struct {
		Halftime  scorePair `json:"halftime"`
		Fulltime  scorePair `json:"fulltime"`
		Extratime scorePair `json:"extratime"`
		Penalty   scorePair `json:"penalty"`
	} `json:"score"`
}

type fixtureInfo struct {
	ID        int64     `json:"id"`
	Referee   *string   `json:"referee"`
	Timezone  string    `json:"timezone"`
	Date      string    `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Venue     venueInfo `json:"venue"`
	Status    struct {
		Long    string `json:"long"`
		Short   string `json:"short"`
		Elapsed *int   `json:"elapsed"`
	} `json:"status"`
}

type venueInfo struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

type leagueInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Season  int    `json:"season"`
	Round   string `json:"round"`
}

type teamSide struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Winner *bool  `json:"winner"`
}

type scorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type teamItem struct {
	Team struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Country  string `json:"country"`
		Founded  int    `json:"founded"`
		National bool   `json:"national"`
	} `json:"team"`
	Venue venueInfo `json:"venue"`
}

// Team is one result of a team search.
type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	Country   string `json:"country"`
	Founded   int    `json:"founded,omitempty"`
	National  bool   `json:"national"`
	VenueName string `json:"venue_name,omitempty"`
	VenueCity string `json:"venue_city,omitempty"`
}
