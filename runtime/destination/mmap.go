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
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	adst "github.com/flowlog/core/apis/destination"
)

// mmapPrealloc is the size a Mmap destination preallocates on first
// write. Exceeding it fails the batch rather than silently growing the
// mapping, matching the destination's zero-copy, OS-managed design.
const mmapPrealloc = 32 * 1024 * 1024

var (
	// ErrMmapClosed indicates a Mmap destination has been closed.
	ErrMmapClosed = errors.New("destination/mmap: closed")
	// ErrMmapOverflow indicates a batch would exceed the preallocated region.
	ErrMmapOverflow = errors.New("destination/mmap: preallocation exceeded")
)

// MmapOptions configures a Mmap destination.
type MmapOptions struct {
	Path     string
	Name     string
	FileMode os.FileMode

	// Prealloc overrides the default 32 MiB region size; mostly for tests.
	Prealloc int
}

// mmapFile is a batched Destination holding a single memory mapping open
// for its lifetime. Writes go straight into the mapping; the OS handles
// asynchronous page writeback. Close msyncs, unmaps, and truncates the
// file down to the bytes actually written.
type mmapFile struct {
	mu       sync.Mutex
	opt      MmapOptions
	name     string
	prealloc int

	fd     int
	region []byte
	offset int
	closed bool
}

var _ adst.Destination = (*mmapFile)(nil)

// NewMmap constructs a Mmap destination. The mapping itself is created
// lazily on the first WriteBatch, matching the destination's "map on
// first write" lifecycle.
func NewMmap(opt MmapOptions) (adst.Destination, error) {
	if opt.Path == "" {
		return nil, errors.New("destination/mmap: empty path")
	}
	if opt.FileMode == 0 {
		opt.FileMode = 0o640
	}
	prealloc := opt.Prealloc
	if prealloc <= 0 {
		prealloc = mmapPrealloc
	}
	if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
		return nil, err
	}
	name := opt.Name
	if name == "" {
		name = "mmap(" + filepath.Base(opt.Path) + ")"
	}
	return &mmapFile{opt: opt, name: name, prealloc: prealloc, fd: -1}, nil
}

func (m *mmapFile) Name() string { return m.name }

func (m *mmapFile) ensureMapped() error {
	if m.region != nil {
		return nil
	}
	fd, err := unix.Open(m.opt.Path, unix.O_RDWR|unix.O_CREAT, uint32(m.opt.FileMode))
	if err != nil {
		return err
	}
	if err := unix.Ftruncate(fd, int64(m.prealloc)); err != nil {
		_ = unix.Close(fd)
		return err
	}
	region, err := unix.Mmap(fd, 0, m.prealloc, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return err
	}
	m.fd = fd
	m.region = region
	m.offset = 0
	return nil
}

// WriteBatch joins the batch with newline separators and copies it
// directly into the mapping at the current offset. A batch that would
// exceed the preallocated region fails entirely: nothing is written.
func (m *mmapFile) WriteBatch(ctx context.Context, lines [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMmapClosed
	}
	if err := m.ensureMapped(); err != nil {
		return err
	}

	size := 0
	for _, ln := range lines {
		size += len(ln) + 1
	}
	if m.offset+size > m.prealloc {
		return fmt.Errorf("%w: offset=%d size=%d prealloc=%d", ErrMmapOverflow, m.offset, size, m.prealloc)
	}

	for _, ln := range lines {
		n := copy(m.region[m.offset:], ln)
		m.offset += n
		m.region[m.offset] = '\n'
		m.offset++
	}
	return nil
}

// Flush msyncs the mapping's dirty pages to disk without unmapping.
func (m *mmapFile) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMmapClosed
	}
	if m.region == nil {
		return nil
	}
	return unix.Msync(m.region, unix.MS_SYNC)
}

// Close msyncs, unmaps, truncates the file to the exact number of bytes
// written, then closes the file descriptor. Close is idempotent.
func (m *mmapFile) Close(ctx context.Context) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if m.region == nil {
		return nil
	}

	var errs []error
	if err := unix.Msync(m.region, unix.MS_SYNC); err != nil {
		errs = append(errs, err)
	}
	if err := unix.Munmap(m.region); err != nil {
		errs = append(errs, err)
	}
	m.region = nil
	if err := unix.Ftruncate(m.fd, int64(m.offset)); err != nil {
		errs = append(errs, err)
	}
	if err := unix.Close(m.fd); err != nil {
		errs = append(errs, err)
	}
	m.fd = -1

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
