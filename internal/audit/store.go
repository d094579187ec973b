package audit

import "context"

// Store is the append-only sink for audit events. The Postgres
// implementation writes to a transactional outbox; the in-memory one keeps
// events for tests and development.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
