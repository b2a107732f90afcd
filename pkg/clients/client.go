// Package clients implements JSON-over-HTTP clients for the remote services
// the engine coordinates: the cluster service directory, the image service,
// and the network-topology service. Remote failures are mapped to classified
// procedure errors so the engine can pattern-match on kind and cause without
// string inspection.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opsforge/opsforge/pkg/procedure"
)

const defaultTimeout = 5 * time.Minute

// remoteError is the error body shape shared by the consumed services.
type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpClient is the shared JSON-over-HTTP core.
type httpClient struct {
	base    *url.URL
	service string
	hc      *http.Client
}

func newHTTPClient(rawURL, service string, hc *http.Client) (*httpClient, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s URL %q: %w", service, rawURL, err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &httpClient{
		base:    base,
		service: service,
		hc:      hc,
	}, nil
}

// do issues one request and decodes the response into out (when non-nil).
// Failures become classified client errors carrying the service tag.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return procedure.NewInternalError("failed to encode request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return procedure.NewInternalError("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return procedure.NewClientError(c.service,
			fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(method, path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return procedure.NewClientError(c.service,
				fmt.Sprintf("%s %s returned undecodable body", method, path), err)
		}
	}
	return nil
}

// errorFromResponse maps a remote error body to a classified client error.
func (c *httpClient) errorFromResponse(method, path string, resp *http.Response) error {
	var remote remoteError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(data, &remote)

	msg := remote.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	err := procedure.NewClientError(c.service, msg,
		fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))

	switch {
	case remote.Code == "NoExternalAccess":
		err = err.WithCause(procedure.CauseNoExternalAccess)
	case remote.Code == "ResourceNotFound" || resp.StatusCode == http.StatusNotFound:
		err = err.WithCause(procedure.CauseNotFound)
	case remote.Code == "AlreadyExists" || resp.StatusCode == http.StatusConflict:
		err = err.WithCause(procedure.CauseAlreadyExists)
	}
	return err
}

// retryable reports whether a failure is worth another attempt: transport
// errors and server-side statuses are, known terminal causes are not.
func retryable(err error) bool {
	switch procedure.CauseOf(err) {
	case procedure.CauseNotFound, procedure.CauseAlreadyExists, procedure.CauseNoExternalAccess:
		return false
	}
	return true
}
