// Package draw batches draw calls and diffs their state against the
// previous draw.
//
// A [DrawCall] bundles a cached pipeline state with its bindings. The
// [Evaluator] remembers what the previous draw applied and reports, per
// category, what the next one changes; slot arrays are reported as the
// union of their dirty ranges. [Renderer] runs the evaluator and hands a
// [Submission] to a [Device].
//
// Draw calls are usually taken from an [Allocator] ring so steady-state
// frames allocate nothing.
package draw
