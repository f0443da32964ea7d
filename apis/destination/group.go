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

// Group represents a fan-out destination that forwards batches to multiple
// destinations.
//
// This is useful when the same log stream should be written to more than
// one file (for example, a local file and a tee-ed staging copy) at the
// same time.
//
// This is an optional extension over Destination. The owning consumer
// still sees a single Destination; the fan-out happens internally.
type Group interface {
	Destination

	// Add registers a new destination in the group.
	// If a destination with the same name already exists, the behavior is
	// implementation-defined (typically: return an error).
	Add(d Destination) error

	// Remove unregisters a destination by its name.
	// If the destination is not found, implementations may return an error
	// or ignore silently.
	Remove(name string) error

	// List returns the names of all destinations currently registered in
	// the group.
	List() []string
}
