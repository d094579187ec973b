// Package session tracks authenticated sessions issued by the commitment
// registry so tokens can be checked and revoked before their expiry.
package session

import (
	"context"

	"attestor/internal/commitment/models"
)

// Store tracks live sessions keyed by token id (jti). Entries expire on
// their own at the session deadline; Revoke removes one early.
type Store interface {
	Save(ctx context.Context, session models.Session) error
	IsActive(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
}
