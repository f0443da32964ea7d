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

// Package registry provides a small generic (Kind, Name) -> Builder lookup,
// used to resolve a destination.Kind to a concrete constructor without the
// runtime/destination package having to know about every implementation.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Key identifies a registered builder by kind and logical name.
type Key struct {
	Kind string
	Name string
}

// Builder constructs a value of type T from a specification of type Spec.
type Builder[T any, Spec any] func(ctx context.Context, name string, spec Spec) (T, error)

// Option configures a Registry at construction time.
type Option func(*options)

type options struct {
	caseFoldLower bool
}

// WithCaseFoldLower makes Key lookups case-insensitive by lower-casing
// Kind/Name before comparison.
func WithCaseFoldLower() Option {
	return func(o *options) { o.caseFoldLower = true }
}

// Registry is a concurrency-safe map from Key to Builder, with an optional
// one-way Seal to prevent further registration once startup is complete.
type Registry[T any, Spec any] struct {
	mu       sync.RWMutex
	opts     options
	builders map[Key]Builder[T, Spec]
	sealed   bool
}

// New constructs an empty Registry.
func New[T any, Spec any](opts ...Option) *Registry[T, Spec] {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return &Registry[T, Spec]{
		opts:     o,
		builders: make(map[Key]Builder[T, Spec]),
	}
}

func (r *Registry[T, Spec]) normalize(k Key) Key {
	if !r.opts.caseFoldLower {
		return k
	}
	return Key{Kind: strings.ToLower(k.Kind), Name: strings.ToLower(k.Name)}
}

// Register adds a builder under key. It returns an error if the registry
// is sealed or the key is already registered.
func (r *Registry[T, Spec]) Register(key Key, b Builder[T, Spec]) error {
	key = r.normalize(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry: sealed, cannot register %+v", key)
	}
	if _, exists := r.builders[key]; exists {
		return fmt.Errorf("registry: %+v already registered", key)
	}
	r.builders[key] = b
	return nil
}

// MustRegister is Register but panics on error. It is meant to be called
// from package init().
func MustRegister[T any, Spec any](r *Registry[T, Spec], key Key, b Builder[T, Spec]) {
	if err := r.Register(key, b); err != nil {
		panic(err)
	}
}

// Build looks up the builder for key and invokes it with name and spec.
func (r *Registry[T, Spec]) Build(ctx context.Context, key Key, name string, spec Spec) (T, error) {
	key = r.normalize(key)

	r.mu.RLock()
	b, ok := r.builders[key]
	r.mu.RUnlock()

	var zero T
	if !ok {
		return zero, fmt.Errorf("registry: no builder registered for %+v", key)
	}
	return b(ctx, name, spec)
}

// Seal prevents further registrations. Seal is idempotent.
func (r *Registry[T, Spec]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Kinds returns the sorted, de-duplicated set of registered Kind values.
func (r *Registry[T, Spec]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range r.builders {
		seen[k.Kind] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
