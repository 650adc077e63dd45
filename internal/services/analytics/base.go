package analytics

import (
	"context"
	"fmt"
	"time"

	xhttp "FusionRisk/pkg/http"
	"FusionRisk/pkg/http/middleware"
)

// HTTPServiceBase posts JSON to one internal endpoint, authenticating with the
// shared internal token and forwarding the caller's Authorization header.
type HTTPServiceBase struct {
	url    string
	token  string
	client *xhttp.Client
}

func NewHTTPServiceBase(url, token string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServiceBase{
		url:    url,
		token:  token,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts payload and decodes a JSON response into dest when dest is non-nil.
// A non-2xx response is returned as *xhttp.StatusError.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, payload interface{}, dest interface{}) error {
	if b.client == nil || b.url == "" {
		return fmt.Errorf("internal http client not initialized")
	}

	headers := map[string]string{middleware.HeaderInternalToken: b.token}
	if auth := xhttp.ForwardedAuthorization(ctx); auth != "" {
		headers["Authorization"] = auth
	}

	if err := b.client.PostJSON(ctx, b.url, headers, payload, dest); err != nil {
		return fmt.Errorf("post %s: %w", b.url, err)
	}
	return nil
}
