// Package shader compiles WGSL shaders with naga and caches the native
// modules.
//
// [Compiler] keys programs by a hash of their source and entry points,
// keeps them in a bounded LRU that destroys evicted modules, and collapses
// concurrent compiles of the same program. The built-in textured quad
// shader used by the blitter is available through [BlitSource] and
// [Compiler.CompileBlit].
package shader
