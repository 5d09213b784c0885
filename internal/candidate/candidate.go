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

// Package candidate buckets inodes by policy.EquivalenceKey so the equality
// oracle only ever needs to compare inodes within the same bucket against
// each other, instead of every inode in a run against every other.
package candidate

import (
	"path/filepath"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/policy"
	"github.com/chadnetzer/hardlinkable/internal/xattrfp"
)

// Index buckets inodes (by their dev) under the EquivalenceKey computed
// from their admitted StatInfo and an arbitrary one of their filenames.
type Index struct {
	policy  policy.MatchingPolicy
	buckets map[uint64]map[policy.EquivalenceKey][]I.Ino
}

// New returns an empty Index governed by the given policy.
func New(p policy.MatchingPolicy) *Index {
	return &Index{
		policy:  p,
		buckets: make(map[uint64]map[policy.EquivalenceKey][]I.Ino),
	}
}

// Add places ino into the bucket matching its StatInfo and pathname on
// device dev. Returns the other inodes already present in that bucket, if
// any, as the candidate set ino must be compared against. If the policy
// cares about extended attributes, Add computes pathname's xattr
// fingerprint up front so that files differing only in xattrs are excluded
// at the bucketing stage rather than surviving to the equality oracle; a
// fingerprint error (e.g. an unsupported filesystem) degrades to the empty
// fingerprint.
func (x *Index) Add(dev uint64, ino I.Ino, si I.StatInfo, pathname string) []I.Ino {
	devBuckets, ok := x.buckets[dev]
	if !ok {
		devBuckets = make(map[policy.EquivalenceKey][]I.Ino)
		x.buckets[dev] = devBuckets
	}
	var fp xattrfp.Fingerprint
	if !x.policy.ContentOnly && !x.policy.IgnoreXattr {
		if computed, err := xattrfp.Compute(pathname); err == nil {
			fp = computed
		}
	}
	key := x.policy.KeyFor(si, filepath.Base(pathname), fp)
	existing := devBuckets[key]
	others := make([]I.Ino, len(existing))
	copy(others, existing)
	devBuckets[key] = append(existing, ino)
	return others
}

// BucketCount returns the number of distinct equivalence-key buckets
// currently populated for dev.
func (x *Index) BucketCount(dev uint64) int {
	return len(x.buckets[dev])
}
