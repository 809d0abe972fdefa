package query

import (
	"context"
	"fmt"

	"github.com/modoterra/sightline/pkg/transport/uds"
)

// Requester sends one request over the daemon transport. *uds.Client implements it.
type Requester interface {
	Request(ctx context.Context, method string, data any) (uds.Message, error)
}

// UDSClient runs queries against timelined over its Unix socket.
// The operation name is the request method; variables are the request data.
type UDSClient struct {
	r Requester
}

// NewUDSClient wraps a daemon connection.
func NewUDSClient(r Requester) *UDSClient {
	return &UDSClient{r: r}
}

// Query sends d to the daemon. The fetch policy is ignored here; wrap the
// client in a CachingClient to honor it.
func (c *UDSClient) Query(ctx context.Context, d Descriptor, _ Options) (*Response, error) {
	msg, err := c.r.Request(ctx, d.Operation, d.Variables)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.Operation, err)
	}
	return &Response{Data: msg.Data}, nil
}
