// Package generator renders a list of routes through a render.Renderer and
// writes every result to its index.html file below an output root.
//
// Each route is an independent task: render, map the route to its output
// path, create the parent directories, write the file. Tasks run
// concurrently and a failing route never stops the others; the batch
// waits for every task and reports the failures together in an Outcome.
package generator
