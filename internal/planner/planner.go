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

// Package planner turns groups of mutually-linkable inodes (as produced by
// unionfind) into an ordered LinkPlan: which path absorbs into which, in
// an order that minimizes the number of link(2) calls while never letting
// any single inode's simulated link count exceed LINK_MAX.
package planner

import (
	"sort"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
	P "github.com/chadnetzer/hardlinkable/internal/pathpool"
	"github.com/chadnetzer/hardlinkable/internal/registry"
	"github.com/chadnetzer/hardlinkable/internal/unionfind"
)

// LinkOp is one planned hard-link operation: dst's path will be replaced
// by a link to src. Src and Dst paths are PathInfo because the filesystem
// driver re-verifies their recorded stat info immediately before acting.
// Their Nlink is the link count each inode has at this point in the plan,
// i.e. after the plan's earlier ops have been executed.
type LinkOp struct {
	Src I.PathInfo
	Dst I.PathInfo
	// SrcIno/DstIno name the inodes involved before this op executes,
	// so simulated nlink bookkeeping and statistics can be tied back to
	// specific inodes.
	SrcIno I.Ino
	DstIno I.Ino
	Bytes  uint64
}

// Plan is the full ordered sequence of link operations for one device,
// plus which inodes were found to already be linked together (no new
// operation needed for those).
type Plan struct {
	Ops           []LinkOp
	ExistingPairs []LinkOp
	// RemovedInodes counts how many distinct inodes the plan eliminates
	// (one per inode with at least one path planned to be relinked).
	RemovedInodes int
}

// inodeInfo is one group member as seen by the planner: its inode number,
// its observed nlink, and its recorded paths.
type inodeInfo struct {
	ino   I.Ino
	nlink uint64
	paths []P.Pathsplit
}

// byNlinkDesc sorts inodeInfo by (Nlink desc, Ino asc), matching the
// teacher's link-ordering heuristic: starting from the inode that already
// has the most links minimizes the number of link(2) calls needed to
// merge a whole group into one inode.
type byNlinkDesc []inodeInfo

func (b byNlinkDesc) Len() int      { return len(b) }
func (b byNlinkDesc) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b byNlinkDesc) Less(i, j int) bool {
	if b[i].nlink != b[j].nlink {
		return b[i].nlink > b[j].nlink
	}
	return b[i].ino < b[j].ino
}

// Build builds a link plan for every multi-member group in uf, reading
// stat/path info from reg. sameName restricts absorption to paths sharing
// a base filename with the source. maxNlink bounds how many links any one
// inode may carry; reaching it forces the planner to promote a new source
// within the same group.
func Build(reg *registry.Registry, uf *unionfind.UnionFind, dev uint64, sameName bool, maxNlink uint64) Plan {
	var plan Plan
	if maxNlink == 0 {
		maxNlink = ^uint64(0)
	}

	for _, members := range uf.Groups() {
		infos := make([]inodeInfo, 0, len(members))
		for _, ino := range members {
			si, ok := reg.StatInfo(dev, ino)
			if !ok {
				continue
			}
			fp, ok := reg.Paths(dev, ino)
			if !ok {
				continue
			}
			infos = append(infos, inodeInfo{ino: ino, nlink: si.Nlink, paths: fp.PathsAsSlice()})
		}
		if len(infos) < 2 {
			continue
		}
		sort.Sort(byNlinkDesc(infos))
		planGroup(reg, dev, infos, sameName, maxNlink, &plan)
	}
	return plan
}

// planGroup greedily absorbs every path of every non-source inode into a
// running "current source" inode, promoting a new source whenever the
// running simulated nlink would exceed maxNlink.
func planGroup(reg *registry.Registry, dev uint64, infos []inodeInfo, sameName bool, maxNlink uint64, plan *Plan) {
	src := infos[0]
	srcSI, _ := reg.StatInfo(dev, src.ino)
	srcPath := arbitraryPath(src)
	sum := src.nlink

	for i := 1; i < len(infos); i++ {
		dst := infos[i]
		dstSI, _ := reg.StatInfo(dev, dst.ino)
		// dstNlink follows dst's link count as its paths are relinked,
		// as sum does for the source's.
		dstNlink := dst.nlink

		absorbedAny := false
		bytesCounted := false
		bytesOp := 0
		for _, p := range dst.paths {
			if sameName && p.Filename != srcPath.Filename {
				continue
			}
			if sum+1 > maxNlink {
				// This source inode is full; promote dst's
				// inode itself to be the new source for the
				// remainder of the group. Since infos is sorted
				// by nlink descending, dst is the remaining
				// member with the highest nlink, and so the
				// least spare capacity; members with more spare
				// capacity are not searched for. dst's own
				// paths (including p) already point at it, so
				// none of them need a LinkOp; break out of this
				// dst's path loop entirely instead of continuing
				// to treat its later paths as absorption targets
				// against themselves.
				src = inodeInfo{ino: dst.ino, nlink: dstNlink, paths: nil}
				srcPath = p
				srcSI = dstSI
				sum = dstNlink
				// dst survives as the new source, so paths of it
				// already relinked above do not eliminate it.
				if bytesCounted {
					plan.Ops[bytesOp].Bytes = 0
				}
				absorbedAny = false
				break
			}
			// dst's size is only counted once, the first time any
			// of its paths is migrated away: post-plan, dst's inode
			// ceases to exist regardless of how many of its paths
			// get individually relinked (unless dst is promoted to
			// source above, which takes the count back).
			var bytes uint64
			if !bytesCounted {
				bytes = uint64(dstSI.Size)
				bytesCounted = true
				bytesOp = len(plan.Ops)
			}
			srcPI := I.PathInfo{Pathsplit: srcPath, StatInfo: srcSI}
			srcPI.Nlink = sum
			dstPI := I.PathInfo{Pathsplit: p, StatInfo: dstSI}
			dstPI.Nlink = dstNlink
			plan.Ops = append(plan.Ops, LinkOp{
				Src:    srcPI,
				Dst:    dstPI,
				SrcIno: src.ino,
				DstIno: dst.ino,
				Bytes:  bytes,
			})
			sum++
			dstNlink--
			absorbedAny = true
		}
		if absorbedAny {
			plan.RemovedInodes++
		}
	}
}

func arbitraryPath(info inodeInfo) P.Pathsplit {
	if len(info.paths) == 0 {
		return P.Pathsplit{}
	}
	return info.paths[0]
}
