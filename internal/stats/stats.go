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

// Package stats accumulates the counters produced by a run and renders
// them as columnated text or JSON.
package stats

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Phase identifies which stage of a run is currently executing, since some
// counters (e.g. comparison counts) are only meaningful in one phase.
type Phase int

const (
	WalkPhase Phase = iota
	LinkPhase
)

// RunStats holds every counter accumulated over a single run.
type RunStats struct {
	DirCount  uint64 `json:"dir_count"`
	FileCount uint64 `json:"file_count"`

	FileTooSmallCount uint64 `json:"file_too_small_count"`
	FileTooLargeCount uint64 `json:"file_too_large_count"`

	ComparisonCount uint64 `json:"comparison_count"`
	BytesCompared   uint64 `json:"bytes_compared"`

	InodeCount        uint64 `json:"inode_count"`
	InodeRemovedCount uint64 `json:"inode_removed_count"`
	NlinkCount        uint64 `json:"nlink_count"`

	ExistingLinkCount      uint64 `json:"existing_link_count"`
	NewLinkCount           uint64 `json:"new_link_count"`
	ExistingLinkByteAmount uint64 `json:"existing_link_byte_amount"`
	InodeRemovedByteAmount uint64 `json:"inode_removed_byte_amount"`

	MismatchedMtimeCount uint64 `json:"mismatched_mtime_count"`
	MismatchedModeCount  uint64 `json:"mismatched_mode_count"`
	MismatchedOwnerCount uint64 `json:"mismatched_owner_count"`
	MismatchedXAttrCount uint64 `json:"mismatched_xattr_count"`
	MismatchedTotalCount uint64 `json:"mismatched_total_count"`

	SkippedDirErrCount  uint64 `json:"skipped_dir_err_count"`
	SkippedFileErrCount uint64 `json:"skipped_file_err_count"`
	SkippedLinkErrCount uint64 `json:"skipped_link_err_count"`

	ExcludedDirCount  uint64 `json:"excluded_dir_count"`
	ExcludedFileCount uint64 `json:"excluded_file_count"`
	IncludedFileCount uint64 `json:"included_file_count"`

	SkippedSetuidCount     uint64 `json:"skipped_setuid_count"`
	SkippedSetgidCount     uint64 `json:"skipped_setgid_count"`
	SkippedNonPermBitCount uint64 `json:"skipped_non_perm_bit_count"`

	FailedLinkChtimesCount uint64 `json:"failed_link_chtimes_count"`
	FailedLinkChownCount   uint64 `json:"failed_link_chown_count"`
}

// addBytesCompared adds n to BytesCompared. Run does not call it; it copies
// the oracle's own byte count into BytesCompared once the walk is done.
func (r *RunStats) addBytesCompared(n uint64) {
	r.BytesCompared += n
}

func (r *RunStats) foundNewLink(bytes uint64) {
	r.NewLinkCount++
	r.InodeRemovedByteAmount += bytes
}

func (r *RunStats) foundExistingLink(bytes uint64) {
	r.ExistingLinkCount++
	r.ExistingLinkByteAmount += bytes
}

func (r *RunStats) foundRemovedInode() {
	r.InodeRemovedCount++
}

func (r *RunStats) skippedNewLink() {
	r.SkippedLinkErrCount++
}

// LinkPair names one planned or already-existing hard link relationship
// for reporting purposes.
type LinkPair struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Results wraps the accumulated RunStats plus (optionally, depending on
// retention settings) the actual lists of link pairs, for text/JSON
// rendering.
type Results struct {
	RunStats

	// NewLinks and ExistingLinks are only populated when the caller asked
	// for path-level detail (verbose or JSON output); otherwise they stay
	// nil to avoid retaining O(n) path lists on runs that don't want them.
	NewLinks      []LinkPair `json:"new_links,omitempty"`
	ExistingLinks []LinkPair `json:"existing_links,omitempty"`
	SkippedLinks  []LinkPair `json:"skipped_links,omitempty"`

	Phase Phase `json:"-"`

	RetainNewLinks      bool `json:"-"`
	RetainExistingLinks bool `json:"-"`
}

// NewResults returns an empty Results, retaining path-level detail
// according to retainNewLinks/retainExistingLinks.
func NewResults(retainNewLinks, retainExistingLinks bool) *Results {
	return &Results{RetainNewLinks: retainNewLinks, RetainExistingLinks: retainExistingLinks}
}

// AddNewLink records a newly-planned (or performed) link, counting its
// savings and, if retention is enabled, remembering the pair.
func (r *Results) AddNewLink(src, dst string, bytes uint64) {
	r.foundNewLink(bytes)
	if r.RetainNewLinks {
		r.NewLinks = append(r.NewLinks, LinkPair{Src: src, Dst: dst})
	}
}

// AddExistingLink records a pair of paths that were already hardlinked to
// each other at scan time.
func (r *Results) AddExistingLink(src, dst string, bytes uint64) {
	r.foundExistingLink(bytes)
	if r.RetainExistingLinks {
		r.ExistingLinks = append(r.ExistingLinks, LinkPair{Src: src, Dst: dst})
	}
}

// AddSkippedLink records a planned link that failed to execute.
func (r *Results) AddSkippedLink(src, dst string) {
	r.skippedNewLink()
	r.SkippedLinks = append(r.SkippedLinks, LinkPair{Src: src, Dst: dst})
}

// AddRemovedInode records that a group absorption eliminated one inode.
func (r *Results) AddRemovedInode() {
	r.foundRemovedInode()
}

// Humanize formats n as a human-readable byte count, e.g. "4.2 MB".
func Humanize(n uint64) string {
	return humanize.Bytes(n)
}

// OutputRunStats writes a columnated plain-text summary of r to w.
func OutputRunStats(w io.Writer, r *Results) {
	fmt.Fprintf(w, "Directories               : %d\n", r.DirCount)
	fmt.Fprintf(w, "Files                     : %d\n", r.FileCount)
	fmt.Fprintf(w, "Inodes                    : %d\n", r.InodeCount)
	fmt.Fprintf(w, "Comparisons               : %d\n", r.ComparisonCount)
	fmt.Fprintf(w, "Bytes compared            : %s\n", Humanize(r.BytesCompared))
	fmt.Fprintf(w, "Currently linked bytes    : %s (%d links)\n", Humanize(r.ExistingLinkByteAmount), r.ExistingLinkCount)
	fmt.Fprintf(w, "Additional saved bytes    : %s (%d new links)\n", Humanize(r.InodeRemovedByteAmount), r.NewLinkCount)
	fmt.Fprintf(w, "Removed inodes            : %d\n", r.InodeRemovedCount)
	if r.MismatchedTotalCount > 0 {
		fmt.Fprintf(w, "Mismatches (mtime/mode/owner/xattr): %d/%d/%d/%d\n",
			r.MismatchedMtimeCount, r.MismatchedModeCount, r.MismatchedOwnerCount, r.MismatchedXAttrCount)
	}
	if r.SkippedDirErrCount+r.SkippedFileErrCount+r.SkippedLinkErrCount > 0 {
		fmt.Fprintf(w, "Skipped (dir/file/link) errors: %d/%d/%d\n", r.SkippedDirErrCount, r.SkippedFileErrCount, r.SkippedLinkErrCount)
	}
}

// OutputResults writes r's stats summary followed by each retained new
// link pair to w. Existing and skipped link pairs are not printed.
func OutputResults(w io.Writer, r *Results) {
	OutputRunStats(w, r)
	for _, p := range r.NewLinks {
		fmt.Fprintf(w, "%s => %s\n", p.Dst, p.Src)
	}
}

// OutputJSONResults writes r as indented JSON to w.
func OutputJSONResults(w io.Writer, r *Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
