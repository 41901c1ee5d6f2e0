package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// maxDocumentBytes bounds how much of an SSR response is read.
const maxDocumentBytes = 32 << 20

// HTTPRenderer asks a running server-side rendering server for each route.
type HTTPRenderer struct {
	base   *url.URL
	client *http.Client
}

func newHTTPRenderer(baseURL string, client *http.Client) (*HTTPRenderer, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ferrors.ConfigError("http engine requires render.base_url").Build()
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ferrors.ConfigError("invalid render.base_url").
			WithCause(err).
			WithContext("base_url", baseURL).
			Build()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRenderer{base: u, client: client}, nil
}

// URLFor returns the address requested for route.
func (h *HTTPRenderer) URLFor(route string) string {
	u := *h.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(route, "/")
	return u.String()
}

func (h *HTTPRenderer) Render(ctx context.Context, route string, rc RequestContext) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URLFor(route), nil)
	if err != nil {
		return "", engineFailure(EngineHTTP, route, err)
	}
	req.Header.Set("Accept", "text/html")
	for k, v := range rc.Request.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", engineFailure(EngineHTTP, route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if rc.Response != nil {
		rc.Response.Status = resp.StatusCode
		if rc.Response.Headers == nil {
			rc.Response.Headers = map[string]string{}
		}
		for k := range resp.Header {
			rc.Response.Headers[k] = resp.Header.Get(k)
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", routeNotFound(route, fmt.Errorf("GET %s: %s", req.URL, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", engineFailure(EngineHTTP, route, fmt.Errorf("GET %s: %s", req.URL, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", engineFailure(EngineHTTP, route, err)
	}
	doc := string(body)
	if err := checkDocument(doc); err != nil {
		return "", engineFailure(EngineHTTP, route, err)
	}
	return doc, nil
}
