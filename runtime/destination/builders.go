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
)

func init() {
	Register(adst.Line.String(), "default", buildLine)
	Register(adst.Block.String(), "default", buildBlock)
	Register(adst.Mmap.String(), "default", buildMmap)
}

func buildLine(ctx context.Context, name string, spec adst.Specification) (adst.Destination, error) {
	if spec.Rotation != nil {
		return NewRotatingFile(RotationOptions{Path: spec.Path, Policy: *spec.Rotation, Name: name})
	}
	return NewLine(LineOptions{Path: spec.Path, Name: name})
}

func buildBlock(ctx context.Context, name string, spec adst.Specification) (adst.Destination, error) {
	if spec.Rotation != nil {
		return NewRotatingFile(RotationOptions{Path: spec.Path, Policy: *spec.Rotation, Name: name, BlockBuffered: true})
	}
	return NewBlock(BlockOptions{Path: spec.Path, Name: name})
}

func buildMmap(ctx context.Context, name string, spec adst.Specification) (adst.Destination, error) {
	return NewMmap(MmapOptions{Path: spec.Path, Name: name})
}
