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

// Package hardlinkable scans one or more directory trees, finds
// byte-identical regular files, and computes (and optionally executes) a
// plan to consolidate them via hard links.
package hardlinkable

import "github.com/chadnetzer/hardlinkable/internal/policy"

// DefaultMinFileSize is the minimum file size considered for linking when
// the caller does not specify one: files of size 0 carry no content to
// compare and are excluded by default.
const DefaultMinFileSize = 1

// Options controls the behavior of a Run.
type Options struct {
	// Directories and Files name the top-level paths to scan. Files are
	// considered individually; Directories are walked recursively.
	Directories []string
	Files       []string

	// MatchingPolicy controls which files are considered equal.
	policy.MatchingPolicy

	// LinkingEnabled, if true, actually performs the planned links on
	// disk. If false, a Run only reports what it would have done.
	LinkingEnabled bool

	// UseNewestLink updates a link's source mtime/uid/gid from the
	// absorbed target when the target was more recently modified.
	UseNewestLink bool

	// FileIncludes/FileExcludes/DirExcludes are regex patterns
	// controlling which pathnames the walk considers.
	FileIncludes []string
	FileExcludes []string
	DirExcludes  []string

	// IgnoreWalkErrors logs a failed directory walk as a warning instead
	// of an error. With or without it, the walk of that directory stops at
	// its first error and the run goes on with the remaining directories;
	// unreadable entries are not skipped one by one.
	IgnoreWalkErrors bool

	// Verbosity, when above zero, retains the new and existing link pairs
	// for the final report. DebugLevel is not read by Run.
	Verbosity  int
	DebugLevel int

	// StatsOutputEnabled/JSONOutputEnabled select the report format(s)
	// produced after a run.
	StatsOutputEnabled bool
	JSONOutputEnabled  bool

	// ShowProgress enables the live terminal progress line.
	ShowProgress bool

	// LinkMaxOverride, if non-zero, is used instead of querying getconf
	// for each device's LINK_MAX.
	LinkMaxOverride uint64
}

// DefaultOptions returns the zero-value-safe baseline Options: linking
// disabled (dry run only), no filters, stats output enabled.
func DefaultOptions() Options {
	o := Options{
		StatsOutputEnabled: true,
	}
	o.MinFileSize = DefaultMinFileSize
	return o
}

// existingLinkStatsEnabled reports whether the current options call for
// retaining the list of already-existing link pairs for the final report.
func (o Options) existingLinkStatsEnabled() bool {
	return o.Verbosity > 0 || o.JSONOutputEnabled
}

// newLinkStatsEnabled reports whether the current options call for
// retaining the list of newly planned link pairs for the final report.
func (o Options) newLinkStatsEnabled() bool {
	return o.Verbosity > 0 || o.JSONOutputEnabled
}
