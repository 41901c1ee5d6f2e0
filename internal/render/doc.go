// Package render turns a route into HTML using an application bundle.
//
// Configure binds an engine to one bundle directory and returns a Renderer that
// is safe for concurrent use. Each call receives its own RequestContext, so no
// request state is shared between routes rendered in parallel.
//
// Engines:
//
//	http      GET <base_url><route> against a running SSR server
//	browser   load the bundle in headless Chrome (go-rod) and serialise the DOM
//	markdown  render content/<route>.md with goldmark into the bundle shell
//
// With resilient set, engine failures other than ErrRouteNotFound fall back to
// the bundle shell (<dist>/index.html) so the route still gets a page.
package render
