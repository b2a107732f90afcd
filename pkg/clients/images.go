package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opsforge/opsforge/pkg/procedure"
	"github.com/opsforge/opsforge/pkg/retry"
)

// ImageClient talks to the local image service.
type ImageClient struct {
	c *httpClient

	// backoff tunes the import retry loop; tests shorten the delays.
	backoff []retry.Option
}

// NewImageClient creates an image client for the given base URL.
func NewImageClient(baseURL string, hc *http.Client) (*ImageClient, error) {
	c, err := newHTTPClient(baseURL, "images", hc)
	if err != nil {
		return nil, err
	}
	return &ImageClient{c: c}, nil
}

// GetImage retrieves a local image manifest by UUID.
func (i *ImageClient) GetImage(ctx context.Context, uuid string) (*procedure.ImageManifest, error) {
	var img procedure.ImageManifest
	err := i.c.do(ctx, http.MethodGet, "/images/"+uuid, nil, nil, &img)
	if err != nil {
		return nil, procedure.TagResource(err, uuid)
	}
	return &img, nil
}

// ImportRemote asks the image service to import uuid from the named remote
// source. Transient failures are retried within the client's bounded budget
// (opts.Retries attempts); the caller sees an atomic pass/fail.
func (i *ImageClient) ImportRemote(ctx context.Context, uuid, source string, opts procedure.ImportOptions) (*procedure.ImageManifest, error) {
	query := url.Values{}
	query.Set("action", "import-remote")
	query.Set("source", source)
	if opts.SkipOwnerCheck {
		query.Set("skip_owner_check", strconv.FormatBool(opts.SkipOwnerCheck))
	}

	attempts := opts.Retries
	if attempts <= 0 {
		attempts = 1
	}

	retryOpts := []retry.Option{
		retry.WithMaxRetries(attempts - 1),
		retry.WithRetryable(retryable),
	}
	retryOpts = append(retryOpts, i.backoff...)

	var img procedure.ImageManifest
	err := retry.WithExponentialBackoff(ctx, func() error {
		return i.c.do(ctx, http.MethodPost, "/images/"+uuid, query, nil, &img)
	}, retryOpts...)
	if err != nil {
		return nil, procedure.TagResource(err, uuid)
	}
	return &img, nil
}

// DeleteImage removes an image, typically a stale unactivated artifact left
// by an interrupted import.
func (i *ImageClient) DeleteImage(ctx context.Context, uuid string) error {
	err := i.c.do(ctx, http.MethodDelete, "/images/"+uuid, nil, nil, nil)
	if err != nil {
		return procedure.TagResource(err, uuid)
	}
	return nil
}
