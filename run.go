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
	"fmt"
	"io"
	"os"

	"github.com/apex/log"

	"github.com/chadnetzer/hardlinkable/internal/candidate"
	"github.com/chadnetzer/hardlinkable/internal/fsdriver"
	I "github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/maxnlink"
	"github.com/chadnetzer/hardlinkable/internal/oracle"
	P "github.com/chadnetzer/hardlinkable/internal/pathpool"
	"github.com/chadnetzer/hardlinkable/internal/planner"
	"github.com/chadnetzer/hardlinkable/internal/progress"
	"github.com/chadnetzer/hardlinkable/internal/registry"
	"github.com/chadnetzer/hardlinkable/internal/stats"
	"github.com/chadnetzer/hardlinkable/internal/unionfind"
	"github.com/chadnetzer/hardlinkable/internal/walker"
)

// Run performs one full scan-and-(optionally)link pass and returns its
// Results. It never writes progress output.
func Run(opts Options) (*Results, error) {
	return RunWithProgress(opts, nil)
}

// RunWithProgress is like Run, but additionally renders a live progress
// line to out while the scan is in flight, if out is a terminal and
// opts.ShowProgress is set.
func RunWithProgress(opts Options, out io.Writer) (*Results, error) {
	if err := validateDirsAndFiles(opts.Directories, opts.Files); err != nil {
		return nil, err
	}

	res := newResults(opts)

	pool := P.NewPool()
	reg := registry.New(pool)
	idx := candidate.New(opts.MatchingPolicy)
	orc := oracle.New(opts.MatchingPolicy)
	groups := make(map[uint64]*unionfind.UnionFind)

	var prog progress.Progress = disabledProgress{}
	if out != nil && opts.ShowProgress {
		if f, ok := out.(*os.File); ok {
			prog = progress.New(out, int(f.Fd()), true)
		}
	}
	defer prog.Done()

	filters := walker.Filters{
		DirExcludes:  opts.DirExcludes,
		FileIncludes: opts.FileIncludes,
		FileExcludes: opts.FileExcludes,
		IgnoreErrors: opts.IgnoreWalkErrors,
	}

	res.Phase = stats.WalkPhase
	for pathname := range walker.Walk(opts.Directories, opts.Files, filters) {
		dsi, err := I.LStatInfo(pathname)
		if err != nil {
			res.SkippedFileErrCount++
			log.WithFields(log.Fields{"path": pathname, "err": err}).Debug("lstat failed")
			continue
		}
		res.FileCount++

		if dsi.HasSetuid() {
			res.SkippedSetuidCount++
			continue
		}
		if dsi.HasSetgid() {
			res.SkippedSetgidCount++
			continue
		}
		if dsi.HasSticky() {
			res.SkippedNonPermBitCount++
			continue
		}
		if !opts.SizeEligible(dsi.Size) {
			if uint64(dsi.Size) < opts.MinFileSize {
				res.FileTooSmallCount++
			} else {
				res.FileTooLargeCount++
			}
			continue
		}

		if _, ok := groups[dsi.Dev]; !ok {
			groups[dsi.Dev] = unionfind.New()
			maxN := opts.LinkMaxOverride
			if maxN == 0 {
				maxN = maxnlink.Lookup(pathname)
			}
			reg.SetMaxNlink(dsi.Dev, maxN)
		}

		firstSeen := reg.Admit(dsi, pathname)
		res.InodeCount = uint64(reg.Count(dsi.Dev))
		uf := groups[dsi.Dev]
		uf.Add(dsi.Ino)

		if firstSeen {
			others := idx.Add(dsi.Dev, dsi.Ino, dsi.StatInfo, pathname)
			// Compare against at most one representative per existing
			// group: since every member of a group is already known to
			// be mutually equal, a second comparison against another
			// member of the same group can only repeat the first's
			// verdict.
			triedRoots := make(map[I.Ino]bool)
			for _, other := range others {
				if uf.Connected(dsi.Ino, other) {
					continue
				}
				root := uf.Find(other)
				if triedRoots[root] {
					continue
				}
				triedRoots[root] = true

				otherSI, ok := reg.StatInfo(dsi.Dev, other)
				if !ok {
					continue
				}
				otherPaths, _ := reg.Paths(dsi.Dev, other)
				otherPath, _ := otherPaths.ArbitraryPath()

				equal, mismatch, err := orc.Equal(other, otherPath.Join(), otherSI, dsi.Ino, pathname, dsi.StatInfo, func() {
					prog.Show(0, uint64(len(pathname)))
				})
				if err != nil {
					log.WithFields(log.Fields{"a": otherPath.Join(), "b": pathname, "err": err}).Debug("comparison failed")
					continue
				}
				recordMismatch(res, mismatch)
				if equal {
					uf.Union(dsi.Ino, other)
				}
			}
		}

		prog.Show(1, 0)
	}
	res.ComparisonCount = orc.ComparisonCount
	res.BytesCompared = orc.BytesCompared

	// Account for files already hardlinked together at scan time.
	for _, dev := range reg.Devices() {
		for _, ino := range reg.Inodes(dev) {
			if !reg.WasExistingLink(dev, ino) {
				continue
			}
			si, _ := reg.StatInfo(dev, ino)
			fp, ok := reg.Paths(dev, ino)
			if !ok {
				continue
			}
			n := fp.CountPaths()
			if n < 2 {
				continue
			}
			paths := fp.PathsAsSlice()
			for i := 1; i < n; i++ {
				res.AddExistingLink(paths[0].Join(), paths[i].Join(), uint64(si.Size))
			}
		}
	}

	res.Phase = stats.LinkPhase
	driver := &fsdriver.Driver{UseNewestLink: opts.UseNewestLink}
	for _, dev := range reg.Devices() {
		uf, ok := groups[dev]
		if !ok {
			continue
		}
		plan := planner.Build(reg, uf, dev, opts.RequireSameName, reg.MaxNlink(dev))
		for _, op := range plan.Ops {
			if opts.LinkingEnabled {
				if err := fsdriver.CheckQuiescence(dev, op.Src, op.Dst); err != nil {
					res.AddSkippedLink(op.Src.Pathsplit.Join(), op.Dst.Pathsplit.Join())
					log.WithFields(log.Fields{"op": op, "err": err}).Warn("skipping stale link")
					continue
				}
				if err := driver.Link(op.Src, op.Dst); err != nil {
					res.AddSkippedLink(op.Src.Pathsplit.Join(), op.Dst.Pathsplit.Join())
					log.WithFields(log.Fields{"op": op, "err": err}).Warn("link failed")
					continue
				}
			}
			res.AddNewLink(op.Src.Pathsplit.Join(), op.Dst.Pathsplit.Join(), op.Bytes)
		}
		for i := 0; i < plan.RemovedInodes; i++ {
			res.AddRemovedInode()
		}
		res.FailedLinkChtimesCount += driver.FailedLinkChtimesCount
		res.FailedLinkChownCount += driver.FailedLinkChownCount
	}

	return res, nil
}

func recordMismatch(r *Results, m oracle.Mismatch) {
	switch m {
	case oracle.MismatchMtime:
		r.MismatchedMtimeCount++
		r.MismatchedTotalCount++
	case oracle.MismatchMode:
		r.MismatchedModeCount++
		r.MismatchedTotalCount++
	case oracle.MismatchOwner:
		r.MismatchedOwnerCount++
		r.MismatchedTotalCount++
	case oracle.MismatchXattr:
		r.MismatchedXAttrCount++
		r.MismatchedTotalCount++
	}
}

func validateDirsAndFiles(dirs, files []string) error {
	for _, d := range dirs {
		fi, err := os.Stat(d)
		if err != nil {
			return fmt.Errorf("hardlinkable: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("hardlinkable: %q is not a directory", d)
		}
	}
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			return fmt.Errorf("hardlinkable: %w", err)
		}
		if fi.IsDir() {
			return fmt.Errorf("hardlinkable: %q is a directory, not a file", f)
		}
	}
	return nil
}

// disabledProgress satisfies progress.Progress without needing an *os.File
// to construct, for callers that pass a non-file io.Writer or want
// progress reporting off entirely.
type disabledProgress struct{}

func (disabledProgress) Show(uint64, uint64) {}
func (disabledProgress) Clear()              {}
func (disabledProgress) Done()               {}
