package clients

import (
	"context"
	"net/http"

	"github.com/opsforge/opsforge/pkg/procedure"
)

// TopologyClient talks to the network-topology service.
type TopologyClient struct {
	c *httpClient
}

// NewTopologyClient creates a topology client for the given base URL.
func NewTopologyClient(baseURL string, hc *http.Client) (*TopologyClient, error) {
	c, err := newHTTPClient(baseURL, "topology", hc)
	if err != nil {
		return nil, err
	}
	return &TopologyClient{c: c}, nil
}

// CheckExternalReachability reports whether the executing zone can reach
// external networks. Read-only; used by the diagnoser to confirm the
// reachability failure signature.
func (t *TopologyClient) CheckExternalReachability(ctx context.Context) (*procedure.Reachability, error) {
	var reach procedure.Reachability
	if err := t.c.do(ctx, http.MethodGet, "/reachability", nil, nil, &reach); err != nil {
		return nil, err
	}
	return &reach, nil
}
