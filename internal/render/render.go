package render

import (
	"context"
	"io"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// Request is the synthetic request handed to the engine for one route.
type Request struct {
	Headers map[string]string
}

// Response collects what the engine reports about its reply.
type Response struct {
	Status  int
	Headers map[string]string
}

// RequestContext is the per-call request/response pair. It is never shared
// between calls.
type RequestContext struct {
	Request  Request
	Response *Response
}

// NewRequestContext returns the minimal context used for static builds: no
// request headers and an empty response.
func NewRequestContext() RequestContext {
	return RequestContext{
		Request:  Request{Headers: map[string]string{}},
		Response: &Response{Headers: map[string]string{}},
	}
}

// Renderer produces the HTML for a route.
type Renderer interface {
	Render(ctx context.Context, route string, rc RequestContext) (string, error)
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, route string, rc RequestContext) (string, error)

func (f Func) Render(ctx context.Context, route string, rc RequestContext) (string, error) {
	return f(ctx, route, rc)
}

// Close releases resources held by r if it holds any.
func Close(r Renderer) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	// ErrRouteNotFound means the application has no page for the route.
	ErrRouteNotFound = ferrors.RenderError("route not found in application").Build()
	// ErrEngine means the engine failed while rendering.
	ErrEngine = ferrors.RenderError("rendering engine failed").Build()
	// ErrEmptyDocument means the engine answered with a document without content.
	ErrEmptyDocument = ferrors.RenderError("rendered document is empty").Build()
)

func routeNotFound(route string, cause error) error {
	return ferrors.RenderError(ErrRouteNotFound.Message()).
		WithCause(cause).
		WithContext("route", route).
		Build()
}

func engineFailure(engine Engine, route string, cause error) error {
	return ferrors.RenderError(ErrEngine.Message()).
		WithCause(cause).
		WithContext("route", route).
		WithContext("engine", string(engine)).
		Build()
}
