package match

import "context"

// Filter narrows List results. Zero values mean "no restriction".
type Filter struct {
	Team string
	// Statuses keeps matches in any of the listed statuses.
	Statuses    []string
	WatchedOnly bool
	Limit       int
}

// Repository persists matches keyed by their upstream external id.
type Repository interface {
	Upsert(ctx context.Context, item Match) (Match, error)
	FindByExternalID(ctx context.Context, externalID int64) (Match, bool, error)
	ListAll(ctx context.Context) ([]Match, error)
	List(ctx context.Context, filter Filter) ([]Match, error)
	UpdateNote(ctx context.Context, externalID int64, note string) (Match, bool, error)
	// Unwatch clears the watched flag and date of a stored match. The bool is false
	// when no match has externalID.
	Unwatch(ctx context.Context, externalID int64) (Match, bool, error)
	Count(ctx context.Context) (int, error)
}
