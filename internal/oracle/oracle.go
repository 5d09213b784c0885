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

// Package oracle decides, authoritatively, whether two files are eligible
// to be linked together: first by cheap metadata checks, then by a digest
// comparison, and finally (if still undecided) by a full byte-for-byte
// comparison of their contents.
package oracle

import (
	"bytes"
	"io"
	"os"

	"github.com/chadnetzer/hardlinkable/internal/digest"
	I "github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/policy"
	"github.com/chadnetzer/hardlinkable/internal/xattrfp"
)

const (
	minCmpBufSize = 4096
	maxCmpBufSize = 32768
)

// Mismatch records which attribute caused two otherwise-bucketed files to
// be rejected, for statistics purposes.
type Mismatch int

const (
	// NoMismatch indicates the files are equal under the policy.
	NoMismatch Mismatch = iota
	MismatchMtime
	MismatchMode
	MismatchOwner
	MismatchXattr
	MismatchContent
)

// Oracle decides file equality for one run, caching digests across calls.
type Oracle struct {
	policy  policy.MatchingPolicy
	digests *digest.Cache
	buf1    []byte
	buf2    []byte
	// BytesCompared accumulates the number of content bytes actually
	// read during full comparisons, for statistics reporting.
	BytesCompared uint64
	// ComparisonCount counts how many full or digest comparisons were
	// performed.
	ComparisonCount uint64
}

// New returns an Oracle governed by p, with its own digest cache.
func New(p policy.MatchingPolicy) *Oracle {
	return &Oracle{
		policy:  p,
		digests: digest.NewCache(),
		buf1:    make([]byte, minCmpBufSize),
		buf2:    make([]byte, minCmpBufSize),
	}
}

// Equal decides whether the file at pathA (inode a, stat siA) and the file
// at pathB (inode b, stat siB) are linkable under the oracle's policy. A
// progress callback, if non-nil, is invoked after each chunk compared
// during a full content comparison.
func (o *Oracle) Equal(a I.Ino, pathA string, siA I.StatInfo, b I.Ino, pathB string, siB I.StatInfo, progress func()) (bool, Mismatch, error) {
	o.ComparisonCount++

	if !o.policy.ContentOnly {
		if !o.policy.IgnoreTime && !siA.EqualTime(siB) {
			return false, MismatchMtime, nil
		}
		if !o.policy.IgnorePerms && !siA.EqualMode(siB) {
			return false, MismatchMode, nil
		}
		if !o.policy.IgnoreOwner && !siA.EqualOwnership(siB) {
			return false, MismatchOwner, nil
		}
	}

	if siA.Size != siB.Size {
		return false, MismatchContent, nil
	}

	if siA.Size > 0 {
		da, err := o.digests.Digest(a, pathA, openFile)
		if err != nil {
			return false, NoMismatch, err
		}
		db, err := o.digests.Digest(b, pathB, openFile)
		if err != nil {
			return false, NoMismatch, err
		}
		if da != db {
			return false, MismatchContent, nil
		}
	}

	equal, err := o.contentsEqual(pathA, pathB, siA.Size, progress)
	if err != nil {
		return false, NoMismatch, err
	}
	if !equal {
		return false, MismatchContent, nil
	}

	if !o.policy.ContentOnly && !o.policy.IgnoreXattr {
		xeq, err := xattrfp.Equal(pathA, pathB)
		if err != nil {
			return false, NoMismatch, err
		}
		if !xeq {
			return false, MismatchXattr, nil
		}
	}

	return true, NoMismatch, nil
}

func openFile(pathname string) (io.ReadCloser, error) {
	return os.Open(pathname)
}

// contentsEqual performs the authoritative, full byte-for-byte comparison,
// growing its buffer size as the comparison proceeds (small files read in
// one chunk; large files amortize the read() syscall count by doubling the
// buffer up to maxCmpBufSize).
func (o *Oracle) contentsEqual(pathA, pathB string, size int64, progress func()) (bool, error) {
	if size == 0 {
		return true, nil
	}
	fa, err := os.Open(pathA)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(pathB)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufSize := minCmpBufSize
	var remaining int64 = size
	for remaining > 0 {
		if bufSize > len(o.buf1) {
			o.buf1 = make([]byte, bufSize)
			o.buf2 = make([]byte, bufSize)
		}
		n := bufSize
		if int64(n) > remaining {
			n = int(remaining)
		}
		na, err := I.ReadChunk(fa, o.buf1[:n])
		if err != nil {
			return false, err
		}
		nb, err := I.ReadChunk(fb, o.buf2[:n])
		if err != nil {
			return false, err
		}
		if na != nb || !bytes.Equal(o.buf1[:na], o.buf2[:nb]) {
			return false, nil
		}
		o.BytesCompared += uint64(na)
		remaining -= int64(na)
		if progress != nil {
			progress()
		}
		if bufSize < maxCmpBufSize {
			bufSize *= 2
			if bufSize > maxCmpBufSize {
				bufSize = maxCmpBufSize
			}
		}
	}
	return true, nil
}

// ForgetInode discards any cached digest for ino, called once an inode has
// been fully absorbed into another and will never be independently
// compared again.
func (o *Oracle) ForgetInode(ino I.Ino) {
	o.digests.Forget(ino)
}
