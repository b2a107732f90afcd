package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/opsforge/opsforge/pkg/procedure"
)

// DirectoryClient talks to the cluster service directory.
type DirectoryClient struct {
	c *httpClient
}

// NewDirectoryClient creates a directory client for the given base URL.
func NewDirectoryClient(baseURL string, hc *http.Client) (*DirectoryClient, error) {
	c, err := newHTTPClient(baseURL, "directory", hc)
	if err != nil {
		return nil, err
	}
	return &DirectoryClient{c: c}, nil
}

// ListServices returns directory entries matching the filter.
func (d *DirectoryClient) ListServices(ctx context.Context, filter procedure.ServiceFilter) ([]procedure.Service, error) {
	query := url.Values{}
	if filter.Name != "" {
		query.Set("name", filter.Name)
	}
	if filter.ApplicationUUID != "" {
		query.Set("application_uuid", filter.ApplicationUUID)
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}

	var svcs []procedure.Service
	if err := d.c.do(ctx, http.MethodGet, "/services", query, nil, &svcs); err != nil {
		return nil, err
	}
	return svcs, nil
}

// CreateService registers a new service. The directory keeps the existing
// entry when an external creator won the race, so a concurrent create is
// not an error for the caller's purposes.
func (d *DirectoryClient) CreateService(ctx context.Context, svc procedure.Service) (*procedure.Service, error) {
	var created procedure.Service
	err := d.c.do(ctx, http.MethodPost, "/services", nil, svc, &created)
	if err != nil {
		return nil, procedure.TagResource(err, svc.Name)
	}
	return &created, nil
}
