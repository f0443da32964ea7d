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
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	adst "github.com/flowlog/core/apis/destination"
	"github.com/flowlog/core/apis/destination/policy"
)

// RotationOptions configures a rotating file destination.
type RotationOptions struct {
	// Path is the path to the active log file.
	Path string

	// Policy describes when and how rotation should happen:
	//   - MaxSizeMB > 0  -> rotate when file size would exceed N megabytes.
	//   - MaxAgeDays > 0 -> rotate when file age exceeds N days.
	//   - MaxBackups > 0 -> keep at most N rotated files.
	//   - Compress       -> gzip rotated files.
	Policy policy.Rotation

	// Name overrides the destination name. If empty, reports
	// "file(<base>)" where <base> is filepath.Base(Path).
	Name string

	// FileMode controls permissions for created log files. Zero means 0640.
	FileMode os.FileMode

	// BlockBuffered skips the fsync after each line. Lines are still
	// written straight to the file; there is no userspace buffer.
	BlockBuffered bool
}

var (
	// ErrRotationClosed indicates the destination has been closed.
	ErrRotationClosed = errors.New("destination/rotation: closed")
	// ErrRotationNoPath indicates an empty file path was provided.
	ErrRotationNoPath = errors.New("destination/rotation: empty path")
)

// rotatingFile is a batched Destination that writes an append-only log
// file, held open between batches, and rotates it by size and/or age.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	opt     RotationOptions
	file    *os.File
	size    int64
	created time.Time
	closed  bool
}

var _ adst.Destination = (*rotatingFile)(nil)

// NewRotatingFile constructs a rotation-capable destination. The active
// file is opened (or created) immediately, and its current size and mod
// time seed the rotation decision.
func NewRotatingFile(opt RotationOptions) (adst.Destination, error) {
	if opt.Path == "" {
		return nil, ErrRotationNoPath
	}
	opt.Policy = normalizeRotationPolicy(opt.Policy)
	if opt.FileMode == 0 {
		opt.FileMode = 0o640
	}

	r := &rotatingFile{path: opt.Path, opt: opt}
	if err := r.openCurrent(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) Name() string {
	if r.opt.Name != "" {
		return r.opt.Name
	}
	return "file(" + filepath.Base(r.path) + ")"
}

// WriteBatch rotates if needed, then writes every line terminated by a
// newline, in order, to the active file.
func (r *rotatingFile) WriteBatch(ctx context.Context, lines [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRotationClosed
	}
	if r.file == nil {
		if err := r.openCurrent(); err != nil {
			return err
		}
	}

	incoming := 0
	for _, l := range lines {
		incoming += len(l) + 1
	}
	if r.shouldRotate(time.Now(), incoming) {
		if err := r.rotateLocked(); err != nil {
			return err
		}
	}

	for _, l := range lines {
		n, err := r.file.Write(l)
		r.size += int64(n)
		if err != nil {
			return err
		}
		n, err = r.file.Write([]byte{'\n'})
		r.size += int64(n)
		if err != nil {
			return err
		}
		if !r.opt.BlockBuffered {
			if err := r.file.Sync(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *rotatingFile) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRotationClosed
	}
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *rotatingFile) Close(ctx context.Context) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

func (r *rotatingFile) openCurrent() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, r.opt.FileMode)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file = f
	r.size = info.Size()
	r.created = info.ModTime()
	return nil
}

func (r *rotatingFile) shouldRotate(now time.Time, incomingBytes int) bool {
	p := r.opt.Policy
	if p.MaxSizeMB > 0 {
		if r.size+int64(incomingBytes) > int64(p.MaxSizeMB)*1024*1024 {
			return true
		}
	}
	if p.MaxAgeDays > 0 {
		if now.Sub(r.created) >= time.Duration(p.MaxAgeDays)*24*time.Hour {
			return true
		}
	}
	return false
}

func (r *rotatingFile) rotateLocked() error {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if _, err := os.Stat(r.path); err == nil {
		backup := rotatedFilename(r.path, time.Now())
		if err := os.Rename(r.path, backup); err != nil {
			return err
		}
		if r.opt.Policy.Compress {
			_ = compressFile(backup)
		}
		if r.opt.Policy.MaxBackups > 0 {
			_ = pruneBackups(r.path, r.opt.Policy.MaxBackups)
		}
	}
	return r.openCurrent()
}

func normalizeRotationPolicy(p policy.Rotation) policy.Rotation {
	if p.MaxSizeMB < 0 {
		p.MaxSizeMB = 0
	}
	if p.MaxAgeDays < 0 {
		p.MaxAgeDays = 0
	}
	if p.MaxBackups < 0 {
		p.MaxBackups = 0
	}
	return p
}

// rotatedFilename builds a rotated file path, e.g.
// /var/log/app.log -> /var/log/app.log.20250301-123456 (UTC).
func rotatedFilename(basePath string, t time.Time) string {
	dir := filepath.Dir(basePath)
	name := filepath.Base(basePath)
	return filepath.Join(dir, name+"."+t.UTC().Format("20060102-150405"))
}

func pruneBackups(basePath string, maxBackups int) error {
	if maxBackups <= 0 {
		return nil
	}
	dir := filepath.Dir(basePath)
	prefix := filepath.Base(basePath) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	if len(backups) <= maxBackups {
		return nil
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.Before(backups[j].modTime) })
	for _, b := range backups[:len(backups)-maxBackups] {
		_ = os.Remove(b.path)
	}
	return nil
}

func compressFile(srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(srcPath+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		_ = gw.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return os.Remove(srcPath)
}
