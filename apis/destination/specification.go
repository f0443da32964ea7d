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

import "github.com/flowlog/core/apis/destination/policy"

// Kind identifies a destination strategy.
type Kind uint8

const (
	// Line opens the file per batch and line-buffers (flush per line).
	Line Kind = iota
	// Block opens the file per batch and buffers writes in a 64 KiB buffer.
	Block
	// Mmap holds a memory mapping open for the destination's lifetime.
	Mmap
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Block:
		return "block"
	case Mmap:
		return "mmap"
	default:
		return "unknown"
	}
}

// Specification is an immutable snapshot of destination configuration.
//
// It is produced by the writer factory and consumed by destination
// builders to construct concrete destinations.
//
// This type intentionally stays generic: if a concrete destination needs
// more specific parameters those should be carried in separate,
// destination-specific configs in the runtime layer.
type Specification struct {
	// Name is the unique identifier of the destination.
	Name string

	// Path is the target file path. The parent directory is created if
	// missing.
	Path string

	// Kind selects the destination strategy (Line, Block, Mmap).
	Kind Kind

	// Backpressure defines how the queue behaves when full.
	Backpressure policy.Backpressure

	// Retry describes how to retry failed batch writes.
	Retry policy.Retry

	// Batch describes batching behavior (size/interval).
	Batch policy.Batch

	// Rotation describes rotation behavior, if supported (Line/Block only).
	Rotation *policy.Rotation

	// Labels is an optional set of key/value labels used for diagnostics
	// and metrics attribution (for example: {"kind":"line"}).
	Labels map[string]string
}
