// Package routes maps logical application routes to the files a static build writes.
//
// The mapping is a pure function of (route, output root):
//
//	"/about"    -> <root>/about/index.html
//	"/"         -> <root>/index.html
//	"/users/1/" -> <root>/index.html
//
// Every route ending in a separator is an index route and collapses to the root
// index file, whatever precedes the separator. Several index routes in one batch
// therefore target the same file and the last writer wins; Collisions reports
// such groups so callers can warn about them.
//
// Routes are trusted input. No escaping or traversal checks are applied beyond
// what filepath.Join does.
package routes
