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

package policy

import (
	"testing"
	"time"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/xattrfp"
)

func TestSizeEligible(t *testing.T) {
	p := MatchingPolicy{MinFileSize: 10, MaxFileSize: 100}
	cases := []struct {
		size int64
		want bool
	}{
		{-1, false},
		{0, false},
		{9, false},
		{10, true},
		{50, true},
		{100, true},
		{101, false},
	}
	for _, c := range cases {
		if got := p.SizeEligible(c.size); got != c.want {
			t.Errorf("SizeEligible(%d) = %v, want %v", c.size, got, c.want)
		}
	}
}

func TestSizeEligibleUnboundedMax(t *testing.T) {
	p := MatchingPolicy{}
	if !p.SizeEligible(1 << 40) {
		t.Fatalf("expected a zero MaxFileSize to mean unbounded")
	}
}

func TestKeyForIgnoredAttributesCollapse(t *testing.T) {
	siA := I.StatInfo{Size: 100, Mode: 0644, Uid: 1, Gid: 1}
	siB := I.StatInfo{Size: 100, Mode: 0755, Uid: 2, Gid: 2}

	strict := MatchingPolicy{}
	if strict.KeyFor(siA, "a", xattrfp.Empty) == strict.KeyFor(siB, "a", xattrfp.Empty) {
		t.Fatalf("differing mode/owner should produce differing keys under the default policy")
	}

	lenient := MatchingPolicy{IgnorePerms: true, IgnoreOwner: true}
	if lenient.KeyFor(siA, "a", xattrfp.Empty) != lenient.KeyFor(siB, "a", xattrfp.Empty) {
		t.Fatalf("ignored attributes should not fragment the equivalence key")
	}
}

func TestKeyForContentOnlyIgnoresEverythingButSize(t *testing.T) {
	siA := I.StatInfo{Size: 100, Mode: 0644, Uid: 1, Gid: 1, Mtim: time.Unix(1, 0)}
	siB := I.StatInfo{Size: 100, Mode: 0600, Uid: 9, Gid: 9, Mtim: time.Unix(2, 0)}

	p := MatchingPolicy{ContentOnly: true}
	if p.KeyFor(siA, "a", 111) != p.KeyFor(siB, "b", 222) {
		t.Fatalf("content-only policy should key purely on size")
	}
}

func TestKeyForRequireSameNameFragmentsByFilename(t *testing.T) {
	si := I.StatInfo{Size: 100}
	p := MatchingPolicy{RequireSameName: true}
	if p.KeyFor(si, "a", xattrfp.Empty) == p.KeyFor(si, "b", xattrfp.Empty) {
		t.Fatalf("RequireSameName should fragment the key by filename")
	}
}

// TestKeyForMtimeFragmentsUnlessIgnored mirrors the teacher's InoHash, which
// folds mtime into the bucketing hash whenever !IgnoreTime && !ContentOnly.
func TestKeyForMtimeFragmentsUnlessIgnored(t *testing.T) {
	siA := I.StatInfo{Size: 100, Mtim: time.Unix(1_700_000_000, 0)}
	siB := I.StatInfo{Size: 100, Mtim: time.Unix(1_700_000_001, 0)}

	strict := MatchingPolicy{}
	if strict.KeyFor(siA, "a", xattrfp.Empty) == strict.KeyFor(siB, "a", xattrfp.Empty) {
		t.Fatalf("differing mtime should produce differing keys under the default policy")
	}

	lenient := MatchingPolicy{IgnoreTime: true}
	if lenient.KeyFor(siA, "a", xattrfp.Empty) != lenient.KeyFor(siB, "a", xattrfp.Empty) {
		t.Fatalf("IgnoreTime should not fragment the equivalence key by mtime")
	}
}

// TestKeyForXattrFragmentsUnlessIgnored verifies the precomputed xattr
// fingerprint passed into KeyFor fragments the bucket unless the policy
// ignores xattrs (or is content-only).
func TestKeyForXattrFragmentsUnlessIgnored(t *testing.T) {
	si := I.StatInfo{Size: 100}

	strict := MatchingPolicy{}
	if strict.KeyFor(si, "a", 1) == strict.KeyFor(si, "a", 2) {
		t.Fatalf("differing xattr fingerprints should produce differing keys under the default policy")
	}

	lenient := MatchingPolicy{IgnoreXattr: true}
	if lenient.KeyFor(si, "a", 1) != lenient.KeyFor(si, "a", 2) {
		t.Fatalf("IgnoreXattr should not fragment the equivalence key by xattr fingerprint")
	}
}
