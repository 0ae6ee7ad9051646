package domain

import "context"

// Resolver bridges external customer ids and internal user ids. A miss is a
// valid outcome ("user has no billing relationship yet"), reported as an
// empty string with a nil error; errors are reserved for store failures.
type Resolver interface {
	ResolveUserID(ctx context.Context, customerID string) (string, error)
	ResolveCustomerID(ctx context.Context, userID string) (string, error)
}
