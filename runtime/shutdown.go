/*
   Copyright 2025 The flowlog Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// scopeGuard is the process-wide registry of open writers, mirroring
// original_source's atexit.register(self._cleanup) per-writer hook with
// a single process-exit entry point instead of one atexit slot each.
// Teardown order within a writer is consumer -> destination -> file
// handle, enforced by writer.Stop/Consumer.Run; across writers, Stop is
// joined concurrently via errgroup.
var scopeGuard = struct {
	mu      sync.Mutex
	writers map[*writer]struct{}
}{writers: make(map[*writer]struct{})}

func register(w *writer) {
	scopeGuard.mu.Lock()
	defer scopeGuard.mu.Unlock()
	scopeGuard.writers[w] = struct{}{}
}

func unregister(w *writer) {
	scopeGuard.mu.Lock()
	defer scopeGuard.mu.Unlock()
	delete(scopeGuard.writers, w)
}

// RunOnExit stops every writer still registered, concurrently, and
// returns the first error encountered (if any). Call this once from the
// host process's own shutdown path (e.g. just before os.Exit).
func RunOnExit(ctx context.Context) error {
	scopeGuard.mu.Lock()
	open := make([]*writer, 0, len(scopeGuard.writers))
	for w := range scopeGuard.writers {
		open = append(open, w)
	}
	scopeGuard.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range open {
		w := w
		eg.Go(func() error { return w.Stop(ctx) })
	}
	return eg.Wait()
}
