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

// Package unionfind implements a disjoint-set (union-find) data structure
// over inode.Ino keys, used to group inodes discovered to be mutually
// linkable without the O(n) BFS-over-adjacency-map approach of repeatedly
// walking a Set-of-Ino graph.
package unionfind

import (
	"sort"

	I "github.com/chadnetzer/hardlinkable/internal/inode"
)

// UnionFind groups inode.Ino values into equivalence classes (one per group
// of mutually linkable inodes) with near-constant-time Union/Find, using
// path compression and union by rank.
type UnionFind struct {
	parent map[I.Ino]I.Ino
	rank   map[I.Ino]int
	size   map[I.Ino]int
}

// New returns an empty UnionFind.
func New() *UnionFind {
	return &UnionFind{
		parent: make(map[I.Ino]I.Ino),
		rank:   make(map[I.Ino]int),
		size:   make(map[I.Ino]int),
	}
}

// Add ensures ino is tracked as its own singleton group, if not already
// present. It is a no-op if ino has already been added.
func (u *UnionFind) Add(ino I.Ino) {
	if _, ok := u.parent[ino]; !ok {
		u.parent[ino] = ino
		u.rank[ino] = 0
		u.size[ino] = 1
	}
}

// Find returns the representative (root) of the group containing ino,
// compressing the path traversed along the way. ino must have been Add()ed
// first.
func (u *UnionFind) Find(ino I.Ino) I.Ino {
	root := ino
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Path compression: repoint every visited node directly at root.
	for u.parent[ino] != root {
		next := u.parent[ino]
		u.parent[ino] = root
		ino = next
	}
	return root
}

// Union merges the groups containing a and b, adding either that isn't
// already tracked. Returns the resulting group's representative.
func (u *UnionFind) Union(a, b I.Ino) I.Ino {
	u.Add(a)
	u.Add(b)
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return ra
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return ra
}

// Connected reports whether a and b are in the same group.
func (u *UnionFind) Connected(a, b I.Ino) bool {
	_, aok := u.parent[a]
	_, bok := u.parent[b]
	if !aok || !bok {
		return false
	}
	return u.Find(a) == u.Find(b)
}

// GroupSize returns the number of inodes in ino's group.
func (u *UnionFind) GroupSize(ino I.Ino) int {
	return u.size[u.Find(ino)]
}

// Groups returns every group with 2 or more members, as a slice of member
// slices. Singleton groups (inodes never unioned with anything) are
// omitted since they have no linking candidates. Both the outer slice and
// each inner slice are sorted by ascending inode number, so callers get a
// stable iteration order across runs regardless of Go's randomized map
// iteration — required for byte-identical plans given identical input.
func (u *UnionFind) Groups() [][]I.Ino {
	byRoot := make(map[I.Ino][]I.Ino)
	for ino := range u.parent {
		root := u.Find(ino)
		byRoot[root] = append(byRoot[root], ino)
	}
	groups := make([][]I.Ino, 0, len(byRoot))
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// Len returns the number of distinct inodes tracked (across all groups).
func (u *UnionFind) Len() int {
	return len(u.parent)
}
