// Package texture provides textures with per-resource lock and view caches.
//
// A [LockCache] tracks CPU mappings of texture sub-resources keyed by
// (mip level, array index): locking a mapped sub-resource again returns the
// existing [LockData], and [LockCache.Unlock] unmaps it. A [ViewCache]
// creates texture views lazily and destroys them with the texture.
package texture
