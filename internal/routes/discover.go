package routes

import (
	"context"
	"errors"
	"log/slog"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
)

// ErrAutoDiscoveryUnsupported is returned by discoverers that cannot derive
// routes from the application bundle.
var ErrAutoDiscoveryUnsupported = ferrors.NewError(ferrors.CategoryConfig, "route auto-discovery is not supported").
	WithSeverity(ferrors.SeverityWarning).
	Build()

// Discoverer derives the route list from an application bundle.
type Discoverer interface {
	Discover(ctx context.Context, distPath string) ([]Route, error)
}

// ExplicitDiscoverer is the only Discoverer today. Reading the application's
// router out of a compiled bundle is not implemented, so it always reports
// ErrAutoDiscoveryUnsupported.
type ExplicitDiscoverer struct{}

func (ExplicitDiscoverer) Discover(_ context.Context, distPath string) ([]Route, error) {
	return nil, ErrAutoDiscoveryUnsupported.WithContext("dist_path", distPath)
}

// Resolve returns the routes to build. When d is nil the explicit list is used
// as is. When discovery is unsupported, Resolve logs a warning and falls back to
// the explicit list; any other discovery error is returned.
func Resolve(ctx context.Context, d Discoverer, distPath string, explicit []Route) ([]Route, error) {
	if d == nil {
		return explicit, nil
	}
	found, err := d.Discover(ctx, distPath)
	switch {
	case errors.Is(err, ErrAutoDiscoveryUnsupported):
		slog.Warn("Route auto-discovery unavailable, using configured routes",
			logfields.Routes(len(explicit)))
		return explicit, nil
	case err != nil:
		return nil, err
	case len(found) == 0:
		return explicit, nil
	default:
		return found, nil
	}
}
