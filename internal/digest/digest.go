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

// Package digest computes and caches a cheap, lazily-populated content
// digest per inode, used to narrow down full byte-for-byte comparison to
// inodes that are at least plausibly identical.
package digest

import (
	"io"

	"github.com/cespare/xxhash/v2"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
)

// firstBlockSize is how much of a file's head is hashed to produce its
// digest value. Two files that differ within the first block are
// guaranteed unequal without a full comparison; files that agree still
// require a full byte-for-byte check before being declared equal.
const firstBlockSize = 8192

// Val is a digest value. Files with different Vals are never equal;
// files with the same Val are merely candidates for a full compare.
type Val uint64

// Cache lazily computes and remembers the digest of each inode's first
// block, keyed by inode number, so repeated membership tests against a
// growing equivalence bucket don't re-read and re-hash the same inode.
type Cache struct {
	vals map[I.Ino]Val
	// buf is reused across Digest calls to avoid a per-call allocation.
	buf []byte
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		vals: make(map[I.Ino]Val),
		buf:  make([]byte, firstBlockSize),
	}
}

// Digest returns the cached digest for ino if already computed, or reads
// the first block of the file at pathname, hashes it, caches the result
// keyed by ino, and returns it.
func (c *Cache) Digest(ino I.Ino, pathname string, open func(string) (io.ReadCloser, error)) (Val, error) {
	if v, ok := c.vals[ino]; ok {
		return v, nil
	}
	f, err := open(pathname)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := I.ReadChunk(f, c.buf)
	if err != nil {
		return 0, err
	}
	v := Val(xxhash.Sum64(c.buf[:n]))
	c.vals[ino] = v
	return v, nil
}

// Has reports whether ino's digest has already been computed.
func (c *Cache) Has(ino I.Ino) bool {
	_, ok := c.vals[ino]
	return ok
}

// Forget discards a cached digest, e.g. after an inode is absorbed into
// another and no longer needs independent tracking.
func (c *Cache) Forget(ino I.Ino) {
	delete(c.vals, ino)
}

// Len reports how many inode digests are currently cached.
func (c *Cache) Len() int {
	return len(c.vals)
}
