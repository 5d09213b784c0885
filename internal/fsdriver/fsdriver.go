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

// Package fsdriver performs the actual filesystem mutation step of a link
// plan: re-checking that a pair of paths haven't changed since they were
// scanned, then atomically replacing the target with a hard link to the
// source.
package fsdriver

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/apex/log"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
)

// Driver performs link operations against the real filesystem.
type Driver struct {
	// UseNewestLink, when true, updates the source file's mtime/uid/gid
	// to match the target's if the target was more recently modified,
	// after a successful link.
	UseNewestLink bool

	FailedLinkChtimesCount uint64
	FailedLinkChownCount   uint64
}

// CheckQuiescence re-lstats every given path and returns an error if any
// of them differ from the PathInfo recorded when they were scanned. It
// must be called (and must succeed) immediately before Link, to avoid
// hardlinking a file that changed mid-run.
func CheckQuiescence(dev uint64, paths ...I.PathInfo) error {
	for _, p := range paths {
		if hasBeenModified(p, dev) {
			return fmt.Errorf("fsdriver: detected modified file before linking: %v", p.Pathsplit.Join())
		}
	}
	return nil
}

// Link unconditionally attempts to hardlink dst (the path being absorbed)
// to src (the path being kept), via a temporary name and atomic rename so
// a crash mid-operation can never leave dst missing. The caller must have
// called CheckQuiescence on both src and dst immediately beforehand.
func (d *Driver) Link(src, dst I.PathInfo) error {
	tmpName := dst.Pathsplit.Join() + ".tmp" + strconv.FormatUint(rand.Uint64(), 36)
	if err := os.Link(src.Pathsplit.Join(), tmpName); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst.Pathsplit.Join()); err != nil {
		os.Remove(tmpName)
		return err
	}
	log.WithFields(log.Fields{
		"src": src.Pathsplit.Join(),
		"dst": dst.Pathsplit.Join(),
	}).Debug("linked")

	if d.UseNewestLink && dst.Mtim.After(src.Mtim) {
		if err := os.Chtimes(src.Pathsplit.Join(), dst.Mtim, dst.Mtim); err != nil {
			d.FailedLinkChtimesCount++
			return nil
		}
		if err := os.Lchown(src.Pathsplit.Join(), int(dst.Uid), int(dst.Gid)); err != nil {
			d.FailedLinkChownCount++
			return nil
		}
	}
	return nil
}

func hasBeenModified(pi I.PathInfo, dev uint64) bool {
	newDSI, err := I.LStatInfo(pi.Pathsplit.Join())
	if err != nil {
		return true
	}
	if newDSI.Dev != dev ||
		newDSI.Ino != pi.Ino ||
		newDSI.Nlink != pi.Nlink ||
		newDSI.Size != pi.Size ||
		!newDSI.Mtim.Equal(pi.Mtim) ||
		newDSI.Mode != pi.Mode ||
		newDSI.Uid != pi.Uid ||
		newDSI.Gid != pi.Gid {
		return true
	}
	return false
}
