//go:build protogen

package directory

import (
	"context"
	"time"

	"github.com/danielvegam/citaflow/libs/grpcx"
	directoryv1 "github.com/danielvegam/citaflow/protos/gen/directory/v1"
)

// Provider checks customer identity against the platform directory service.
// A nil provider means the engine relies on its local customer replica only.
type Provider interface {
	CustomerExists(ctx context.Context, tenantID, customerID string) (bool, error)
}

type grpcProvider struct {
	client directoryv1.DirectoryServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (p *grpcProvider) CustomerExists(ctx context.Context, tenantID, customerID string) (bool, error) {
	resp, err := p.client.GetCustomer(ctx, &directoryv1.GetCustomerRequest{
		TenantId:   tenantID,
		CustomerId: customerID,
	})
	if err != nil {
		return false, err
	}
	return resp.GetExists(), nil
}
