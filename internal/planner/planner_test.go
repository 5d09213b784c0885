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

package planner

import (
	"testing"
	"time"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
	P "github.com/chadnetzer/hardlinkable/internal/pathpool"
	"github.com/chadnetzer/hardlinkable/internal/registry"
	"github.com/chadnetzer/hardlinkable/internal/unionfind"
)

func admitFile(t *testing.T, reg *registry.Registry, pool *P.Pool, dev uint64, ino I.Ino, size int64, nlink uint64, pathname string) {
	t.Helper()
	dsi := I.DevStatInfo{
		Dev: dev,
		StatInfo: I.StatInfo{
			Size:  size,
			Ino:   ino,
			Nlink: nlink,
			Mtim:  time.Unix(1_700_000_000, 0),
		},
	}
	reg.Admit(dsi, pathname)
}

// TestBuildPrefersHighestNlinkSource mirrors spec scenario S2: three
// mutually-equal inodes with nlink 3/1/1 should plan exactly 2 ops, both
// sourced from the nlink-3 inode, and the eliminated inodes' bytes should
// be counted exactly once each (not once per op).
func TestBuildPrefersHighestNlinkSource(t *testing.T) {
	pool := P.NewPool()
	reg := registry.New(pool)
	const dev = 1

	admitFile(t, reg, pool, dev, 10, 100, 3, "/d/a")
	admitFile(t, reg, pool, dev, 20, 100, 1, "/d/b")
	admitFile(t, reg, pool, dev, 30, 100, 1, "/d/c")

	uf := unionfind.New()
	uf.Union(10, 20)
	uf.Union(10, 30)

	plan := Build(reg, uf, dev, false, 0)
	if len(plan.Ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(plan.Ops))
	}
	for _, op := range plan.Ops {
		if op.SrcIno != 10 {
			t.Fatalf("expected source inode 10, got %d", op.SrcIno)
		}
	}
	var totalBytes uint64
	for _, op := range plan.Ops {
		totalBytes += op.Bytes
	}
	if totalBytes != 200 {
		t.Fatalf("expected total bytes 200 (2 x 100), got %d", totalBytes)
	}
	if plan.RemovedInodes != 2 {
		t.Fatalf("expected 2 removed inodes, got %d", plan.RemovedInodes)
	}
}

// TestBuildCountsTargetBytesOnce verifies that a target inode with multiple
// existing pathnames contributes its size exactly once, even though each of
// its paths needs its own LinkOp. The source is given the higher nlink so
// that the two-path inode is the one absorbed.
func TestBuildCountsTargetBytesOnce(t *testing.T) {
	pool := P.NewPool()
	reg := registry.New(pool)
	const dev = 1

	admitFile(t, reg, pool, dev, 10, 50, 3, "/d/src")
	admitFile(t, reg, pool, dev, 20, 50, 2, "/d/dst1")
	reg.Admit(I.DevStatInfo{Dev: dev, StatInfo: I.StatInfo{Size: 50, Ino: 20, Nlink: 2, Mtim: time.Unix(1_700_000_000, 0)}}, "/d/dst2")

	uf := unionfind.New()
	uf.Union(10, 20)

	plan := Build(reg, uf, dev, false, 0)
	if len(plan.Ops) != 2 {
		t.Fatalf("expected 2 ops (one per path of the absorbed inode), got %d", len(plan.Ops))
	}
	var totalBytes uint64
	for _, op := range plan.Ops {
		totalBytes += op.Bytes
	}
	if totalBytes != 50 {
		t.Fatalf("expected target's size counted exactly once (50), got %d", totalBytes)
	}
}

// TestBuildRespectsLinkMax verifies that once a source inode's simulated
// nlink would exceed maxNlink, the planner promotes a new source instead of
// continuing to grow the saturated one.
func TestBuildRespectsLinkMax(t *testing.T) {
	pool := P.NewPool()
	reg := registry.New(pool)
	const dev = 1

	admitFile(t, reg, pool, dev, 10, 100, 2, "/d/a")
	admitFile(t, reg, pool, dev, 20, 100, 1, "/d/b")
	admitFile(t, reg, pool, dev, 30, 100, 1, "/d/c")

	uf := unionfind.New()
	uf.Union(10, 20)
	uf.Union(10, 30)

	// maxNlink of 2 means the source (starting at nlink 2) has no
	// remaining capacity at all; the first absorption must promote.
	plan := Build(reg, uf, dev, false, 2)
	for _, op := range plan.Ops {
		if op.SrcIno == 10 {
			t.Fatalf("source inode 10 had no remaining capacity and should not have absorbed anything")
		}
	}
}

// TestBuildPromotionSeedsRealCapacityAndNeverSelfLinks verifies that when
// the running source saturates partway through a multi-path target's own
// path list, the promoted target (a) never gets a LinkOp pointed at itself
// for its own remaining paths, and (b) starts the new source's simulated
// nlink at its real nlink rather than a hardcoded 1 — so later absorptions
// stop exactly at maxNlink instead of silently overshooting it.
//
// Group: A (nlink=5, already saturated at maxNlink=5), B (nlink=3, paths
// b1/b2/b3), C (nlink=1, path c1), D (nlink=1, path d1), E (nlink=1, path
// e1). Sorted by nlink descending: A, B, C, D, E (C/D/E tie-broken by
// ascending inode number). A has no spare capacity at all, so the first
// path of B immediately promotes B to be the source. B's real remaining
// capacity is maxNlink-nlink = 5-3 = 2, so it should absorb exactly two of
// {C, D, E} before itself saturating and promoting again for the third.
func TestBuildPromotionSeedsRealCapacityAndNeverSelfLinks(t *testing.T) {
	pool := P.NewPool()
	reg := registry.New(pool)
	const dev = 1

	admitFile(t, reg, pool, dev, 10, 100, 5, "/d/a")
	admitFile(t, reg, pool, dev, 20, 100, 3, "/d/b1")
	admitFile(t, reg, pool, dev, 20, 100, 3, "/d/b2")
	admitFile(t, reg, pool, dev, 20, 100, 3, "/d/b3")
	admitFile(t, reg, pool, dev, 30, 50, 1, "/d/c")
	admitFile(t, reg, pool, dev, 40, 50, 1, "/d/d")
	admitFile(t, reg, pool, dev, 50, 50, 1, "/d/e")

	uf := unionfind.New()
	uf.Union(10, 20)
	uf.Union(10, 30)
	uf.Union(10, 40)
	uf.Union(10, 50)

	plan := Build(reg, uf, dev, false, 5)

	if len(plan.Ops) != 2 {
		t.Fatalf("expected exactly 2 ops (B's real spare capacity), got %d: %+v", len(plan.Ops), plan.Ops)
	}
	for _, op := range plan.Ops {
		if op.SrcIno == op.DstIno {
			t.Fatalf("op %+v links an inode to itself", op)
		}
		if op.SrcIno != 20 {
			t.Fatalf("expected every op to be sourced from the promoted inode 20, got %+v", op)
		}
		if op.DstIno == 10 {
			t.Fatalf("op %+v absorbs the already-saturated inode 10", op)
		}
	}
	var totalBytes uint64
	for _, op := range plan.Ops {
		totalBytes += op.Bytes
	}
	if totalBytes != 100 {
		t.Fatalf("expected 2 absorbed inodes of size 50 each (100 total), got %d", totalBytes)
	}
	if plan.RemovedInodes != 2 {
		t.Fatalf("expected 2 removed inodes, got %d", plan.RemovedInodes)
	}
}

// TestBuildSkipsSingletonGroups ensures groups of size 1 (inodes that never
// unioned with anything) produce no ops.
func TestBuildSkipsSingletonGroups(t *testing.T) {
	pool := P.NewPool()
	reg := registry.New(pool)
	const dev = 1
	admitFile(t, reg, pool, dev, 10, 100, 1, "/d/a")

	uf := unionfind.New()
	uf.Add(10)

	plan := Build(reg, uf, dev, false, 0)
	if len(plan.Ops) != 0 {
		t.Fatalf("expected no ops for a singleton group, got %d", len(plan.Ops))
	}
}
