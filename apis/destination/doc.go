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

// Package destination defines the contracts for log destinations in flowlog/core.
//
// A destination is a final consumer of batches of encoded log lines: a file
// opened per batch, a block-buffered file, or a memory-mapped file.
// Concrete implementations live in runtime/destination.
package destination
