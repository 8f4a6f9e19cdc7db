//go:build !protogen

package directory

import "context"

// Provider checks customer identity against the platform directory service.
// A nil provider means the engine relies on its local customer replica only.
type Provider interface {
	CustomerExists(ctx context.Context, tenantID, customerID string) (bool, error)
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
