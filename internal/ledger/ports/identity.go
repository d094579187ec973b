// Package ports declares the capabilities the ledger consumes from other
// components, so the service depends on small interfaces instead of
// concrete siblings.
package ports

import (
	"context"

	"attestor/pkg/domain"
)

// Authorizer answers whether a wallet may issue right now, and records
// successful issuances against it. The ledger calls CanIssue at the moment
// of every issuance attempt; implementations must not serve cached answers.
type Authorizer interface {
	CanIssue(ctx context.Context, wallet domain.Address) (bool, error)
	IncrementIssuedCount(ctx context.Context, wallet domain.Address) error
}
