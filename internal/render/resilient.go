package render

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/staticboot/internal/logfields"
)

// resilientRenderer serves the bundle shell when the wrapped engine fails.
// Unknown routes and cancelled calls are never masked.
type resilientRenderer struct {
	next      Renderer
	shellPath string
}

func (r *resilientRenderer) Render(ctx context.Context, route string, rc RequestContext) (string, error) {
	out, err := r.next.Render(ctx, route, rc)
	if err == nil || errors.Is(err, ErrRouteNotFound) || ctx.Err() != nil {
		return out, err
	}
	shell, readErr := os.ReadFile(r.shellPath)
	if readErr != nil {
		return "", err
	}
	slog.Warn("Render failed, serving application shell",
		logfields.Route(route),
		logfields.Error(err))
	return string(shell), nil
}

func (r *resilientRenderer) Close() error {
	return Close(r.next)
}
