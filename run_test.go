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

package hardlinkable

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, content []byte, mtime time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", p, err)
	}
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatalf("Chtimes(%s): %v", p, err)
	}
	return p
}

func statIno(t *testing.T, path string) uint64 {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%s): %v", path, err)
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		t.Fatalf("Stat(%s): unsupported Sys() type", path)
	}
	return st.Ino
}

// TestTwoIdenticalFilesLink covers spec scenario S1: two distinct-inode
// files with identical size/mtime/mode/content are linked together, and
// the savings equal the file size.
func TestTwoIdenticalFilesLink(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Unix(1_700_000_000, 0)
	content := []byte("0123456789")
	a := writeFile(t, dir, "a", content, mtime)
	b := writeFile(t, dir, "b", content, mtime)

	if statIno(t, a) == statIno(t, b) {
		t.Fatalf("a and b must start as distinct inodes")
	}

	opts := DefaultOptions()
	opts.Directories = []string{dir}
	opts.LinkingEnabled = true

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NewLinkCount != 1 {
		t.Fatalf("expected 1 new link, got %d", res.NewLinkCount)
	}
	if res.InodeRemovedByteAmount != uint64(len(content)) {
		t.Fatalf("expected %d bytes saved, got %d", len(content), res.InodeRemovedByteAmount)
	}
	if statIno(t, a) != statIno(t, b) {
		t.Fatalf("expected a and b to share an inode after linking")
	}
}

// TestThreeIdenticalFilesPreferHighestNlinkSource covers spec scenario S2:
// among three mutually-equal inodes, the one with the highest observed
// nlink is chosen as the source, minimizing new link(2) calls.
func TestThreeIdenticalFilesPreferHighestNlinkSource(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Unix(1_700_000_000, 0)
	content := []byte("identical content")

	a := writeFile(t, dir, "a", content, mtime)
	a2 := filepath.Join(dir, "a2")
	if err := os.Link(a, a2); err != nil {
		t.Fatalf("Link: %v", err)
	}
	writeFile(t, dir, "b", content, mtime)
	writeFile(t, dir, "c", content, mtime)

	opts := DefaultOptions()
	opts.Directories = []string{dir}
	opts.LinkingEnabled = true

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NewLinkCount != 2 {
		t.Fatalf("expected 2 new links, got %d", res.NewLinkCount)
	}
	if res.InodeRemovedByteAmount != 2*uint64(len(content)) {
		t.Fatalf("expected %d bytes saved, got %d", 2*len(content), res.InodeRemovedByteAmount)
	}
	// a, a2, b, c should all now share one inode.
	want := statIno(t, a)
	for _, name := range []string{"a2", "b", "c"} {
		if got := statIno(t, filepath.Join(dir, name)); got != want {
			t.Fatalf("%s: expected inode %d, got %d", name, want, got)
		}
	}
}

// TestMismatchedTimeDefaultPolicy covers spec scenario S3: files with
// differing mtimes are not linked under the default policy, but are
// linked when time is ignored or content-only matching is requested.
func TestMismatchedTimeDefaultPolicy(t *testing.T) {
	content := []byte("same bytes, different times")

	t.Run("default policy rejects", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a", content, time.Unix(1_700_000_000, 0))
		writeFile(t, dir, "b", content, time.Unix(1_700_000_100, 0))

		opts := DefaultOptions()
		opts.Directories = []string{dir}

		res, err := Run(opts)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.NewLinkCount != 0 {
			t.Fatalf("expected no new links, got %d", res.NewLinkCount)
		}
		if res.MismatchedMtimeCount != 1 {
			t.Fatalf("expected 1 mismatched-mtime count, got %d", res.MismatchedMtimeCount)
		}
	})

	t.Run("ignore-time links", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a", content, time.Unix(1_700_000_000, 0))
		writeFile(t, dir, "b", content, time.Unix(1_700_000_100, 0))

		opts := DefaultOptions()
		opts.Directories = []string{dir}
		opts.IgnoreTime = true
		opts.LinkingEnabled = true

		res, err := Run(opts)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.NewLinkCount != 1 {
			t.Fatalf("expected 1 new link, got %d", res.NewLinkCount)
		}
	})

	t.Run("content-only links", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a", content, time.Unix(1_700_000_000, 0))
		writeFile(t, dir, "b", content, time.Unix(1_700_000_100, 0))

		opts := DefaultOptions()
		opts.Directories = []string{dir}
		opts.ContentOnly = true
		opts.LinkingEnabled = true

		res, err := Run(opts)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.NewLinkCount != 1 {
			t.Fatalf("expected 1 new link, got %d", res.NewLinkCount)
		}
	})
}

// TestMinSizeRejectsSmallFiles covers spec scenario S5.
func TestMinSizeRejectsSmallFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small", make([]byte, 1000), time.Unix(1_700_000_000, 0))

	opts := DefaultOptions()
	opts.Directories = []string{dir}
	opts.MinFileSize = 2048

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FileTooSmallCount != 1 {
		t.Fatalf("expected 1 too-small rejection, got %d", res.FileTooSmallCount)
	}
	if res.InodeCount != 0 {
		t.Fatalf("expected no inodes admitted, got %d", res.InodeCount)
	}
}

// TestSameNameRequiresMatchingBasenames covers spec scenario S6.
func TestSameNameRequiresMatchingBasenames(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	mtime := time.Unix(1_700_000_000, 0)
	content := []byte("shared content")

	writeFile(t, dir1, "x", content, mtime)
	writeFile(t, dir2, "x", content, mtime)
	writeFile(t, dir1, "y", content, mtime)

	opts := DefaultOptions()
	opts.Directories = []string{dir1, dir2}
	opts.RequireSameName = true
	opts.LinkingEnabled = true

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NewLinkCount != 1 {
		t.Fatalf("expected exactly 1 new link (the x/x pair), got %d", res.NewLinkCount)
	}
}

// TestIdempotentSecondRun covers spec invariant 4: running the plan twice
// on the same tree produces an empty second plan.
func TestIdempotentSecondRun(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Unix(1_700_000_000, 0)
	content := []byte("idempotence check")
	writeFile(t, dir, "a", content, mtime)
	writeFile(t, dir, "b", content, mtime)

	opts := DefaultOptions()
	opts.Directories = []string{dir}
	opts.LinkingEnabled = true

	if _, err := Run(opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	res, err := Run(opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.NewLinkCount != 0 {
		t.Fatalf("expected second run to find no new links, got %d", res.NewLinkCount)
	}
	if res.ExistingLinkCount != 1 {
		t.Fatalf("expected second run to report 1 existing link, got %d", res.ExistingLinkCount)
	}
}
