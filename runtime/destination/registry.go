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

package destination

import (
	"context"

	adst "github.com/flowlog/core/apis/destination"
	"github.com/flowlog/core/runtime/registry"
)

// Registered is the process-wide destination registry, keyed by
// (kind, name) and case-insensitive for convenience. Built-in kinds
// (line, block, mmap) register themselves from init().
var Registered = registry.New[adst.Destination, adst.Specification](registry.WithCaseFoldLower())

// Register adds a destination builder under (kind, slot). Typical usage
// from package init(): Register("line", "default", build). slot
// distinguishes multiple builders of the same kind (for example, a
// future "line.syslog" variant); it is unrelated to the instance name
// passed to Build.
func Register(kind, slot string, b registry.Builder[adst.Destination, adst.Specification]) {
	registry.MustRegister(Registered, registry.Key{Kind: kind, Name: slot}, b)
}

// Build resolves the (kind, slot) builder and constructs a destination
// instance named name from spec.
func Build(ctx context.Context, kind, slot, name string, spec adst.Specification) (adst.Destination, error) {
	return Registered.Build(ctx, registry.Key{Kind: kind, Name: slot}, name, spec)
}

// Seal prevents further registrations, once all init() funcs have run.
func Seal() { Registered.Seal() }
