// Copyright © 2018 Chad Netzer <chad.netzer@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package registry tracks every inode admitted during a scan, deduplicating
// multiple pathnames that already refer to the same (device, inode number)
// pair, and recording each inode's observed stat info and pathnames.
package registry

import (
	"sort"

	P "github.com/chadnetzer/hardlinkable/internal/pathpool"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
)

// Per-device registry. A single run may span multiple filesystems; inode
// numbers are only unique within one device, so registries are kept apart
// per Dev.
type devRegistry struct {
	maxNlink uint64
	stat     map[I.Ino]I.StatInfo
	paths    I.PathsMap
	// existing is the set of inodes that were already linked (nlink > 1)
	// to something else at first admission.
	existing map[I.Ino]bool
}

// Registry is the top-level, multi-device inode registry.
type Registry struct {
	pool *P.Pool
	devs map[uint64]*devRegistry
}

// New returns an empty Registry. The supplied pool is used to intern every
// directory name recorded via Admit.
func New(pool *P.Pool) *Registry {
	return &Registry{pool: pool, devs: make(map[uint64]*devRegistry)}
}

func (r *Registry) dev(dev uint64) *devRegistry {
	d, ok := r.devs[dev]
	if !ok {
		d = &devRegistry{
			stat:     make(map[I.Ino]I.StatInfo),
			paths:    make(I.PathsMap),
			existing: make(map[I.Ino]bool),
		}
		r.devs[dev] = d
	}
	return d
}

// SetMaxNlink records the LINK_MAX value applicable to dev.
func (r *Registry) SetMaxNlink(dev, maxNlink uint64) {
	r.dev(dev).maxNlink = maxNlink
}

// MaxNlink returns the LINK_MAX value recorded for dev, or 0 if unset.
func (r *Registry) MaxNlink(dev uint64) uint64 {
	return r.dev(dev).maxNlink
}

// Admit records pathname's observed DevStatInfo in the registry. It
// returns whether this is the first time the inode has been seen
// (firstSeen) so the caller can decide whether to run the more expensive
// equivalence-bucketing/comparison steps. Whether the inode was already
// linked elsewhere (a path already recorded, or on-disk nlink > 1) is
// recorded for WasExistingLink rather than returned.
func (r *Registry) Admit(dsi I.DevStatInfo, pathname string) (firstSeen bool) {
	d := r.dev(dsi.Dev)
	ino := dsi.Ino
	_, firstSeen = d.stat[ino]
	firstSeen = !firstSeen
	d.stat[ino] = dsi.StatInfo

	fp, ok := d.paths[ino]
	if !ok {
		fp = I.NewFilenamePaths()
		d.paths[ino] = fp
	}
	wasEmpty := fp.IsEmpty()
	fp.Add(P.Split(r.pool, pathname))

	// If this inode already had a path recorded, or its on-disk nlink
	// was already greater than 1 when first admitted, it arrived
	// already hardlinked to something.
	if !wasEmpty || dsi.Nlink > 1 {
		d.existing[ino] = true
	}
	return firstSeen
}

// StatInfo returns the recorded StatInfo for (dev, ino), if known.
func (r *Registry) StatInfo(dev uint64, ino I.Ino) (I.StatInfo, bool) {
	d := r.dev(dev)
	si, ok := d.stat[ino]
	return si, ok
}

// Paths returns the FilenamePaths recorded for (dev, ino), if known.
func (r *Registry) Paths(dev uint64, ino I.Ino) (*I.FilenamePaths, bool) {
	d := r.dev(dev)
	fp, ok := d.paths[ino]
	return fp, ok
}

// WasExistingLink reports whether (dev, ino) was already linked to another
// recorded path (or had on-disk nlink > 1) at first admission.
func (r *Registry) WasExistingLink(dev uint64, ino I.Ino) bool {
	return r.dev(dev).existing[ino]
}

// Inodes returns every distinct inode number recorded for dev, sorted
// ascending so callers get a stable iteration order across runs regardless
// of Go's randomized map iteration.
func (r *Registry) Inodes(dev uint64) []I.Ino {
	d := r.dev(dev)
	out := make([]I.Ino, 0, len(d.stat))
	for ino := range d.stat {
		out = append(out, ino)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Devices returns every device id with at least one recorded inode, sorted
// ascending so callers get a stable iteration order across runs regardless
// of Go's randomized map iteration.
func (r *Registry) Devices() []uint64 {
	out := make([]uint64, 0, len(r.devs))
	for dev := range r.devs {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns the number of distinct inodes recorded for dev.
func (r *Registry) Count(dev uint64) int {
	return len(r.dev(dev).stat)
}
