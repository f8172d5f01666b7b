package apifootball

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchlog/internal/domain/match"
	"github.com/riskibarqy/matchlog/internal/platform/cache"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"github.com/riskibarqy/matchlog/internal/platform/resilience"
	"github.com/riskibarqy/matchlog/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL   = "https://v3.football.api-sports.io"
	defaultHost      = "v3.football.api-sports.io"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

var errMalformedPayload = crerr.New("malformed payload")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Host       string
	APIKey     string
	Timeout    time.Duration
	Logger     *logging.Logger
	// TeamCache holds team search results. Nil disables caching.
	TeamCache *cache.Store[[]Team]
}

// Client talks to API-Football v3. It never retries; callers decide.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	apiKey     string
	logger     *logging.Logger
	teamCache  *cache.Store[[]Team]
	flight     resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultHost
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		host:       host,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		logger:     logger,
		teamCache:  cfg.TeamCache,
	}
}

// FetchMatch resolves ref to exactly one fixture.
func (c *Client) FetchMatch(ctx context.Context, ref usecase.MatchReference) (usecase.MatchData, error) {
	if err := ref.Validate(); err != nil {
		return usecase.MatchData{}, err
	}

	query := map[string]string{}
	if ref.IsByID() {
		query["id"] = strconv.FormatInt(ref.FixtureID, 10)
	} else {
		query["team"] = strconv.FormatInt(ref.TeamID, 10)
		query["date"] = ref.Date
		if ref.LeagueID > 0 {
			query["league"] = strconv.FormatInt(ref.LeagueID, 10)
			season := ref.Season
			if season <= 0 {
				season = seasonFromDate(ref.Date)
			}
			query["season"] = strconv.Itoa(season)
		} else if ref.Season > 0 {
			query["season"] = strconv.Itoa(ref.Season)
		}
	}

	var payload envelope[fixtureItem]
	if err := c.doJSON(ctx, "/fixtures", query, &payload); err != nil {
		return usecase.MatchData{}, err
	}

	switch len(payload.Response) {
	case 0:
		return usecase.MatchData{}, crerr.WithHint(
			crerr.Wrapf(usecase.ErrNotFound, "no fixture matches reference %s", ref),
			"check the fixture id, or the team id and date of the match",
		)
	case 1:
	default:
		return usecase.MatchData{}, crerr.WithHint(
			crerr.Wrapf(usecase.ErrNotFound, "ambiguous reference %s matches %d fixtures", ref, len(payload.Response)),
			"record the match by its fixture id instead",
		)
	}

	item, err := toMatchData(payload.Response[0])
	if err != nil {
		return usecase.MatchData{}, crerr.Wrapf(usecase.ErrTransport, "fixture reference %s: %v", ref, err)
	}
	if ref.IsByID() && item.FixtureID != ref.FixtureID {
		return usecase.MatchData{}, crerr.Wrapf(usecase.ErrTransport,
			"%v: requested fixture %d, provider returned %d", errMalformedPayload, ref.FixtureID, item.FixtureID)
	}
	return item, nil
}

// FetchTeamFixtures lists every fixture of a team in one league season.
// Malformed fixtures are skipped and logged.
func (c *Client) FetchTeamFixtures(ctx context.Context, teamID, leagueID int64, season int) ([]usecase.MatchData, error) {
	if teamID <= 0 || leagueID <= 0 || season <= 0 {
		return nil, fmt.Errorf("%w: team, league and season are required", usecase.ErrValidation)
	}

	query := map[string]string{
		"team":   strconv.FormatInt(teamID, 10),
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
	}

	var payload envelope[fixtureItem]
	if err := c.doJSON(ctx, "/fixtures", query, &payload); err != nil {
		return nil, err
	}

	out := make([]usecase.MatchData, 0, len(payload.Response))
	for _, raw := range payload.Response {
		item, err := toMatchData(raw)
		if err != nil {
			c.logger.WarnContext(ctx, "skip malformed fixture",
				"fixture_id", raw.Fixture.ID,
				"team_id", teamID,
				"error", err,
			)
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kickoff < out[j].Kickoff })

	c.logger.InfoContext(ctx, "team fixtures fetched",
		"team_id", teamID,
		"league_id", leagueID,
		"season", season,
		"count", len(out),
	)
	return out, nil
}

// SearchTeams looks teams up by name. Results are cached when a cache is configured.
func (c *Client) SearchTeams(ctx context.Context, name, country string) ([]Team, error) {
	name = strings.TrimSpace(name)
	country = strings.TrimSpace(country)
	if len([]rune(name)) < 3 {
		return nil, fmt.Errorf("%w: team name needs at least 3 characters", usecase.ErrValidation)
	}

	load := func(ctx context.Context) ([]Team, error) {
		query := map[string]string{"name": name}
		if country != "" {
			query["country"] = country
		}

		var payload envelope[teamItem]
		if err := c.doJSON(ctx, "/teams", query, &payload); err != nil {
			return nil, err
		}

		out := make([]Team, 0, len(payload.Response))
		for _, item := range payload.Response {
			if item.Team.ID <= 0 || strings.TrimSpace(item.Team.Name) == "" {
				continue
			}
			out = append(out, Team{
				ID:        item.Team.ID,
				Name:      strings.TrimSpace(item.Team.Name),
				Code:      item.Team.Code,
				Country:   item.Team.Country,
				Founded:   item.Team.Founded,
				National:  item.Team.National,
				VenueName: item.Venue.Name,
				VenueCity: item.Venue.City,
			})
		}
		return out, nil
	}

	if c.teamCache == nil {
		return load(ctx)
	}
	key := "teams:" + strings.ToLower(name) + "|" + strings.ToLower(country)
	return c.teamCache.GetOrLoad(ctx, key, load)
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// The shared request is detached from any one caller's cancellation and is
	// bounded by the HTTP client timeout instead.
	shareCtx := context.WithoutCancel(ctx)
	raw, err, shared := c.flight.DoContext(ctx, fullURL, func() ([]byte, error) {
		return c.executeRequest(shareCtx, fullURL)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && stderrors.Is(err, ctxErr) {
			return fmt.Errorf("%w: request %s abandoned: %w", usecase.ErrTransport, path, err)
		}
		return err
	}
	if shared {
		c.logger.DebugContext(ctx, "api-football request shared", "url", fullURL)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrapf(usecase.ErrTransport, "%v: decode %s: %v", errMalformedPayload, path, err)
	}
	if err := checkBodyErrors(target); err != nil {
		c.logger.WarnContext(ctx, "api-football reported errors", "url", fullURL, "error", c.sanitize(err.Error()))
		return err
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, crerr.Wrapf(usecase.ErrTransport, "build request: %v", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", c.sanitize(err.Error()))
		hint := "check network connectivity and API_FOOTBALL_BASE_URL"
		if stderrors.Is(err, context.DeadlineExceeded) {
			hint = "the provider did not answer in time; raise API_FOOTBALL_TIMEOUT or retry later"
		}
		return nil, crerr.WithHint(crerr.Wrapf(usecase.ErrTransport, "send request: %s", c.sanitize(err.Error())), hint)
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return nil, crerr.Wrapf(usecase.ErrTransport, "read response body: %v", err)
	}
	raw := append([]byte(nil), buf.B...)

	c.logger.DebugContext(ctx, "api-football request done",
		"url", fullURL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, c.statusError(resp.StatusCode, raw)
}

func (c *Client) statusError(status int, body []byte) error {
	detail := c.sanitize(abbreviateBody(body))
	switch {
	case status == http.StatusNotFound:
		return crerr.Wrapf(usecase.ErrNotFound, "provider status=%d body=%s", status, detail)
	case status == http.StatusTooManyRequests:
		return crerr.WithHint(
			crerr.Wrapf(usecase.ErrRateLimited, "provider status=%d", status),
			"the API-Football request quota is exhausted; wait before retrying",
		)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return crerr.WithHint(
			crerr.Wrapf(usecase.ErrTransport, "provider status=%d body=%s", status, detail),
			"check API_FOOTBALL_KEY",
		)
	default:
		return crerr.Wrapf(usecase.ErrTransport, "provider status=%d body=%s", status, detail)
	}
}

func (c *Client) sanitize(value string) string {
	return sanitizeSensitiveText(value, c.apiKey)
}

// checkBodyErrors inspects the "errors" member API-Football fills on a 200 response.
func checkBodyErrors(target any) error {
	var errs any
	switch payload := target.(type) {
	case *envelope[fixtureItem]:
		errs = payload.Errors
	case *envelope[teamItem]:
		errs = payload.Errors
	default:
		return nil
	}

	switch value := errs.(type) {
	case map[string]any:
		if len(value) == 0 {
			return nil
		}
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		messages := make([]string, 0, len(keys))
		for _, key := range keys {
			messages = append(messages, fmt.Sprintf("%s=%v", key, value[key]))
		}
		if _, ok := value["rateLimit"]; ok {
			return crerr.WithHint(
				crerr.Wrapf(usecase.ErrRateLimited, "provider errors: %s", strings.Join(messages, "; ")),
				"too many requests per minute; wait before retrying",
			)
		}
		if _, ok := value["requests"]; ok {
			return crerr.WithHint(
				crerr.Wrapf(usecase.ErrRateLimited, "provider errors: %s", strings.Join(messages, "; ")),
				"the daily API-Football request quota is exhausted",
			)
		}
		return crerr.Wrapf(usecase.ErrTransport, "provider errors: %s", strings.Join(messages, "; "))
	case []any:
		if len(value) == 0 {
			return nil
		}
		return crerr.Wrapf(usecase.ErrTransport, "provider errors: %v", value)
	default:
		return nil
	}
}

func toMatchData(item fixtureItem) (usecase.MatchData, error) {
	if item.Fixture.ID <= 0 {
		return usecase.MatchData{}, crerr.Wrap(errMalformedPayload, "fixture id is missing")
	}
	home := strings.TrimSpace(item.Teams.Home.Name)
	away := strings.TrimSpace(item.Teams.Away.Name)
	if home == "" || away == "" {
		return usecase.MatchData{}, crerr.Wrapf(errMalformedPayload, "fixture %d has no team names", item.Fixture.ID)
	}
	kickoff := strings.TrimSpace(item.Fixture.Date)
	if _, err := time.Parse(time.RFC3339, kickoff); err != nil {
		return usecase.MatchData{}, crerr.Wrapf(errMalformedPayload, "fixture %d has unparseable date %q", item.Fixture.ID, kickoff)
	}

	return usecase.MatchData{
		FixtureID:    item.Fixture.ID,
		Kickoff:      kickoff,
		Venue:        item.Fixture.Venue.Name,
		VenueCity:    item.Fixture.Venue.City,
		StatusShort:  item.Fixture.Status.Short,
		StatusLong:   item.Fixture.Status.Long,
		LeagueID:     item.League.ID,
		LeagueName:   item.League.Name,
		Season:       item.League.Season,
		Round:        item.League.Round,
		HomeTeamID:   item.Teams.Home.ID,
		HomeTeam:     home,
		AwayTeamID:   item.Teams.Away.ID,
		AwayTeam:     away,
		GoalsHome:    item.Goals.Home,
		GoalsAway:    item.Goals.Away,
		HalftimeHome: item.Score.Halftime.Home,
		HalftimeAway: item.Score.Halftime.Away,
		FulltimeHome: item.Score.Fulltime.Home,
		FulltimeAway: item.Score.Fulltime.Away,
	}, nil
}

func seasonFromDate(date string) int {
	day, err := time.Parse(match.DateLayout, date)
	if err != nil {
		return 0
	}
	return day.Year()
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" || key == "" {
		return value
	}
	return strings.ReplaceAll(value, key, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
