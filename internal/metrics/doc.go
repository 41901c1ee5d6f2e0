// Package metrics provides observability hooks for page generation batches.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	gen := generator.New(renderer, out, routes) // NoopRecorder
//	gen := generator.New(renderer, out, routes,
//		generator.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the supplied registry and
// HTTPHandler exposes that registry for scraping (daemon mode).
package metrics
