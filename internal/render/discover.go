package render

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// ContentDiscoverer derives routes from the markdown sources below the
// bundle's content directory. "index.md" files yield directory routes
// ("/guide/"), other files yield leaf routes ("/guide/setup").
type ContentDiscoverer struct{}

// Discover walks distPath/content. A bundle without a content directory
// reports routes.ErrAutoDiscoveryUnsupported.
func (ContentDiscoverer) Discover(ctx context.Context, distPath string) ([]routes.Route, error) {
	root := filepath.Join(distPath, ContentDir)
	var found []routes.Route
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		found = append(found, routeForSource(filepath.ToSlash(rel)))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, routes.ErrAutoDiscoveryUnsupported.WithContext("dist_path", distPath)
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

func routeForSource(rel string) routes.Route {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if rel == "index" {
		return "/"
	}
	if dir, ok := strings.CutSuffix(rel, "/index"); ok {
		return "/" + dir + "/"
	}
	return "/" + rel
}

// DiscovererFor returns the route discoverer matching engine. Engines that
// render a live application cannot enumerate its routes.
func DiscovererFor(engine Engine) routes.Discoverer {
	if engine == EngineMarkdown {
		return ContentDiscoverer{}
	}
	return routes.ExplicitDiscoverer{}
}
