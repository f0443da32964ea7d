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

import "context"

// Destination is where a consumer delivers batches of already-serialized
// log lines.
//
// Notes:
//   - Destination works with opaque [][]byte lines to keep this package
//     independent of any record/field format.
//   - Exactly one goroutine (the owning consumer) may call WriteBatch/Flush/
//     Close over the lifetime of a Destination; implementations are not
//     required to be safe for concurrent callers.
//   - Destination should avoid panicking: it is the end of the pipeline.
type Destination interface {
	// Name returns a human-friendly identifier of the destination.
	// It is used for diagnostics, metrics and config lookups.
	Name() string

	// WriteBatch delivers an ordered, non-empty batch of encoded log lines
	// to the destination. Each line is written in order, separated and
	// terminated by a newline. Returned error means the batch was not
	// (fully) persisted.
	WriteBatch(ctx context.Context, lines [][]byte) error

	// Flush forces durable progress as best the strategy allows.
	Flush(ctx context.Context) error

	// Close releases underlying resources (files, mappings, buffers).
	// Close must be idempotent. After Close, the destination must not be used.
	Close(ctx context.Context) error
}
