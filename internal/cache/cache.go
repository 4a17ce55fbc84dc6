// Copyright 2024 vshell Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides cache implementations for the vshell namespace.
//
// Design Principles:
// 1. Fine-grained cache management - Invalidate only affected directories, not entire cache
// 2. Single layer ownership - The namespace owns its cache and invalidates it on every mutation
//
// Currently provides:
// - ListCache: LRU cache of directory listings with per-directory and per-subtree invalidation
package cache

import "os"

// Disabled controls whether all caching mechanisms are disabled.
// Set via VSHELL_CACHE=0 environment variable.
// When true:
// - ListCache.Get() always reports a miss
// - ListCache.Set() is a no-op
//
// This is useful for testing and debugging to verify logic works correctly
// without caching, and to isolate cache-related bugs.
var Disabled = os.Getenv("VSHELL_CACHE") == "0"

// Invalidator is implemented by all caches that support full invalidation.
type Invalidator interface {
	// Invalidate clears all entries from the cache.
	Invalidate()
}
