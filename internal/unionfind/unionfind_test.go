package unionfind

import (
	"sort"
	"testing"
)

func TestUnionBasic(t *testing.T) {
	u := New()
	u.Union(1, 2)
	u.Union(2, 3)
	u.Add(4)

	if !u.Connected(1, 3) {
		t.Fatalf("expected 1 and 3 to be connected")
	}
	if u.Connected(1, 4) {
		t.Fatalf("expected 1 and 4 to be disconnected")
	}
	if u.GroupSize(1) != 3 {
		t.Fatalf("expected group size 3, got %d", u.GroupSize(1))
	}
}

func TestGroupsOmitsSingletons(t *testing.T) {
	u := New()
	u.Union(1, 2)
	u.Add(3)

	groups := u.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected exactly one multi-member group, got %d", len(groups))
	}
	members := groups[0]
	got := make([]int, len(members))
	for i, m := range members {
		got[i] = int(m)
	}
	sort.Ints(got)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected group members: %v", got)
	}
}

func TestUnionIdempotent(t *testing.T) {
	u := New()
	u.Union(1, 2)
	u.Union(1, 2)
	if u.GroupSize(1) != 2 {
		t.Fatalf("expected group size 2 after repeated union, got %d", u.GroupSize(1))
	}
}
