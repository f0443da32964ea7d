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
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	adst "github.com/flowlog/core/apis/destination"
)

// ErrGroupClosed indicates a Group has been closed.
var ErrGroupClosed = errors.New("destination/group: closed")

// group fans a batch out to every member destination concurrently via
// errgroup, so one slow member does not serialize behind another.
type group struct {
	mu      sync.RWMutex
	name    string
	members map[string]adst.Destination
	order   []string
	closed  bool
}

var _ adst.Group = (*group)(nil)

// NewGroup constructs an empty fan-out Group.
func NewGroup(name string) adst.Group {
	return &group{name: name, members: make(map[string]adst.Destination)}
}

func (g *group) Name() string { return g.name }

func (g *group) Add(d adst.Destination) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGroupClosed
	}
	if _, exists := g.members[d.Name()]; exists {
		return fmt.Errorf("destination/group: %q already registered", d.Name())
	}
	g.members[d.Name()] = d
	g.order = append(g.order, d.Name())
	return nil
}

func (g *group) Remove(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.members[name]; !exists {
		return fmt.Errorf("destination/group: %q not registered", name)
	}
	delete(g.members, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

func (g *group) List() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *group) snapshot() []adst.Destination {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]adst.Destination, 0, len(g.order))
	for _, n := range g.order {
		out = append(out, g.members[n])
	}
	return out
}

func (g *group) WriteBatch(ctx context.Context, lines [][]byte) error {
	members := g.snapshot()
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range members {
		d := d
		eg.Go(func() error { return d.WriteBatch(ctx, lines) })
	}
	return eg.Wait()
}

func (g *group) Flush(ctx context.Context) error {
	members := g.snapshot()
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range members {
		d := d
		eg.Go(func() error { return d.Flush(ctx) })
	}
	return eg.Wait()
}

func (g *group) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	members := g.snapshot()
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range members {
		d := d
		eg.Go(func() error { return d.Close(ctx) })
	}
	return eg.Wait()
}
