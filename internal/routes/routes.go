package routes

import (
	"fmt"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// IndexFile is the file name written for every rendered route.
const IndexFile = "index.html"

// Route is a logical application path such as "/", "/about" or "/users/42/".
type Route = string

// IsIndex reports whether route ends with a path separator.
func IsIndex(route Route) bool {
	return strings.HasSuffix(route, "/")
}

// OutputPathForRoute returns the file a route is written to below outputRoot.
func OutputPathForRoute(route Route, outputRoot string) string {
	if IsIndex(route) {
		return filepath.Join(outputRoot, IndexFile)
	}
	return filepath.Join(outputRoot, route, IndexFile)
}

// Normalize trims surrounding whitespace from each route and rejects empty ones.
// Order and duplicates are preserved.
func Normalize(raw []string) ([]Route, error) {
	out := make([]Route, 0, len(raw))
	for i, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			return nil, ferrors.ValidationError("route must not be empty").
				WithContext("index", i).
				Build()
		}
		out = append(out, r)
	}
	return out, nil
}

// Collisions groups routes that map to the same output file. Only groups with
// more than one route are returned.
func Collisions(list []Route, outputRoot string) map[string][]Route {
	byPath := make(map[string][]Route, len(list))
	for _, r := range list {
		p := OutputPathForRoute(r, outputRoot)
		byPath[p] = append(byPath[p], r)
	}
	for p, rs := range byPath {
		if len(rs) < 2 {
			delete(byPath, p)
		}
	}
	return byPath
}

// DescribeCollision renders a collision group for log output.
func DescribeCollision(path string, list []Route) string {
	return fmt.Sprintf("%s <- %s", path, strings.Join(list, ", "))
}
