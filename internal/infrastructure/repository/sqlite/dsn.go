package sqlite

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxTracedQueryLength = 512

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

// buildDSN turns a file path into a go-sqlite3 DSN. Parameters already present
// on the path are kept.
func buildDSN(path string, busyTimeout time.Duration) string {
	path = strings.TrimSpace(path)
	base, rawQuery, _ := strings.Cut(path, "?")

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	setDefault(query, "_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	setDefault(query, "_journal_mode", "WAL")
	setDefault(query, "_foreign_keys", "on")
	setDefault(query, "_txlock", "immediate")

	return "file:" + base + "?" + query.Encode()
}

func setDefault(query url.Values, key, value string) {
	if query.Get(key) == "" {
		query.Set(key, value)
	}
}

// migrateURL is the golang-migrate sqlite3 URL for the same file.
func migrateURL(path string, busyTimeout time.Duration) string {
	base, _, _ := strings.Cut(strings.TrimSpace(path), "?")
	query := url.Values{}
	query.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	return "sqlite3://" + base + "?" + query.Encode()
}

func dbNameFromPath(path string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(path), "?")
	if base == "" {
		return ""
	}
	name := filepath.Base(base)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func formatQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}
