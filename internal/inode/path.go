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

package inode

import (
	"sort"

	P "github.com/chadnetzer/hardlinkable/internal/pathpool"
)

// PathInfo pairs a single pathname (split for pool sharing) with the
// StatInfo that was observed for it at scan time.
type PathInfo struct {
	Pathsplit P.Pathsplit
	StatInfo
}

// filenames is the set of distinct base names that currently point at one
// inode from within a single directory.
type filenames map[string]struct{}

// FilenamePaths tracks every directory entry (across possibly many
// directories) that currently refers to one inode.
type FilenamePaths struct {
	// FPMap maps a directory name to the set of file names within it
	// that are (to our knowledge) linked to this inode.
	FPMap   map[string]filenames
	arbPath P.Pathsplit
	arbSet  bool
}

// NewFilenamePaths returns an empty FilenamePaths.
func NewFilenamePaths() *FilenamePaths {
	return &FilenamePaths{FPMap: make(map[string]filenames)}
}

// Add records pathname as referring to this inode.
func (fp *FilenamePaths) Add(p P.Pathsplit) {
	names, ok := fp.FPMap[p.Dirname]
	if !ok {
		names = make(filenames)
		fp.FPMap[p.Dirname] = names
	}
	names[p.Filename] = struct{}{}
	if !fp.arbSet {
		fp.arbPath = p
		fp.arbSet = true
	}
}

// Remove forgets that pathname refers to this inode.
func (fp *FilenamePaths) Remove(p P.Pathsplit) {
	names, ok := fp.FPMap[p.Dirname]
	if !ok {
		return
	}
	delete(names, p.Filename)
	if len(names) == 0 {
		delete(fp.FPMap, p.Dirname)
	}
	if fp.arbSet && fp.arbPath == p {
		fp.arbSet = false
		for a := range fp.All() {
			fp.arbPath = a
			fp.arbSet = true
			break
		}
	}
}

// HasPath reports whether pathname is currently recorded against this inode.
func (fp *FilenamePaths) HasPath(p P.Pathsplit) bool {
	names, ok := fp.FPMap[p.Dirname]
	if !ok {
		return false
	}
	_, ok = names[p.Filename]
	return ok
}

// HasFilename reports whether any recorded path uses the given base name.
func (fp *FilenamePaths) HasFilename(filename string) bool {
	for _, names := range fp.FPMap {
		if _, ok := names[filename]; ok {
			return true
		}
	}
	return false
}

// ArbitraryPath returns some pathname currently recorded against this
// inode, useful as a representative "source" path.
func (fp *FilenamePaths) ArbitraryPath() (P.Pathsplit, bool) {
	return fp.arbPath, fp.arbSet
}

// CountPaths returns the total number of distinct pathnames recorded.
func (fp *FilenamePaths) CountPaths() int {
	n := 0
	for _, names := range fp.FPMap {
		n += len(names)
	}
	return n
}

// IsEmpty reports whether no pathnames are recorded.
func (fp *FilenamePaths) IsEmpty() bool {
	return fp.CountPaths() == 0
}

// All returns every recorded pathname, sorted (dir, then name) for
// deterministic plan output, through a channel suitable for ranging over.
func (fp *FilenamePaths) All() <-chan P.Pathsplit {
	out := make(chan P.Pathsplit)
	go func() {
		defer close(out)
		for _, p := range fp.PathsAsSlice() {
			out <- p
		}
	}()
	return out
}

// PathsAsSlice returns every recorded pathname as a slice, sorted by
// (dir, name) so callers get a stable iteration order across runs
// regardless of Go's randomized map iteration.
func (fp *FilenamePaths) PathsAsSlice() []P.Pathsplit {
	out := make([]P.Pathsplit, 0, fp.CountPaths())
	for dir, names := range fp.FPMap {
		for name := range names {
			out = append(out, P.Pathsplit{Dirname: dir, Filename: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dirname != out[j].Dirname {
			return out[i].Dirname < out[j].Dirname
		}
		return out[i].Filename < out[j].Filename
	})
	return out
}

// PathsMap associates each known inode with the set of pathnames that refer
// to it.
type PathsMap map[Ino]*FilenamePaths

// PathCount returns the number of pathnames known for ino.
func (m PathsMap) PathCount(ino Ino) int {
	fp, ok := m[ino]
	if !ok {
		return 0
	}
	return fp.CountPaths()
}
