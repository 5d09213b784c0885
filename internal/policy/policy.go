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

// Package policy defines the rules that decide which files are candidates
// for consolidation, and what "equal enough to link" means for a run.
package policy

import (
	I "github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/xattrfp"
)

// MatchingPolicy controls which metadata attributes must agree before two
// files are considered linkable, and which content/size ranges are
// eligible at all.
type MatchingPolicy struct {
	// RequireSameName demands the two paths share a base filename.
	RequireSameName bool
	// IgnorePerms skips the permission-bits comparison.
	IgnorePerms bool
	// IgnoreTime skips the mtime comparison.
	IgnoreTime bool
	// IgnoreOwner skips the uid/gid comparison.
	IgnoreOwner bool
	// IgnoreXattr skips the extended attribute comparison entirely.
	IgnoreXattr bool
	// ContentOnly ignores every metadata attribute (perms, time, owner,
	// xattr) and links on byte-equality alone.
	ContentOnly bool
	// MinFileSize and MaxFileSize bound which file sizes are considered;
	// zero MaxFileSize means unbounded.
	MinFileSize uint64
	MaxFileSize uint64
}

// SizeEligible reports whether size falls within the policy's configured
// [MinFileSize, MaxFileSize] range.
func (p MatchingPolicy) SizeEligible(size int64) bool {
	if size < 0 {
		return false
	}
	if uint64(size) < p.MinFileSize {
		return false
	}
	if p.MaxFileSize != 0 && uint64(size) > p.MaxFileSize {
		return false
	}
	return true
}

// EquivalenceKey buckets files that could possibly be equal under the
// current policy, before any content comparison happens. Files whose keys
// differ can never be linkable; files whose keys match merely share a
// bucket to be resolved by the equality oracle.
type EquivalenceKey struct {
	Size int64
	// Mode, Uid, Gid, MtimeSec/MtimeNsec, Xattr, Filename are zero-valued
	// when the corresponding policy attribute is ignored, so that ignored
	// attributes don't fragment the bucketing. MtimeSec/MtimeNsec hold the
	// decomposed mtime rather than an embedded time.Time, mirroring the
	// teacher's own InoHash (which XORs raw Sec/Nsec fields rather than
	// comparing time.Time values) and keeping the key safely comparable
	// with ==.
	Mode      uint32
	Uid       uint32
	Gid       uint32
	MtimeSec  int64
	MtimeNsec int64
	Xattr     xattrfp.Fingerprint
	Filename  string
}

// KeyFor computes the EquivalenceKey for a candidate file's StatInfo, base
// filename, and (if the policy cares about xattrs) precomputed xattr
// fingerprint, honoring which attributes the policy says to ignore.
func (p MatchingPolicy) KeyFor(si I.StatInfo, filename string, xattr xattrfp.Fingerprint) EquivalenceKey {
	k := EquivalenceKey{Size: si.Size}
	if !p.ContentOnly {
		if !p.IgnorePerms {
			k.Mode = uint32(si.Mode)
		}
		if !p.IgnoreOwner {
			k.Uid = si.Uid
			k.Gid = si.Gid
		}
		if !p.IgnoreTime {
			k.MtimeSec = si.Mtim.Unix()
			k.MtimeNsec = int64(si.Mtim.Nanosecond())
		}
		if !p.IgnoreXattr {
			k.Xattr = xattr
		}
	}
	if p.RequireSameName {
		k.Filename = filename
	}
	return k
}
