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
	"io"

	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// Results is the full outcome of a Run: every accumulated counter, plus
// (when the caller asked for path-level detail) the actual new/existing/
// skipped link pairs.
type Results = stats.Results

// newResults returns an empty Results, configured to retain path-level
// detail according to opts' verbosity/JSON settings.
func newResults(opts Options) *Results {
	return stats.NewResults(opts.newLinkStatsEnabled(), opts.existingLinkStatsEnabled())
}

// PrintResults writes r's stats summary followed by each retained new link
// pair to w. Existing and skipped link pairs are not printed.
func PrintResults(w io.Writer, r *Results) {
	stats.OutputResults(w, r)
}

// PrintStats writes just r's columnated stats summary to w, omitting any
// retained link-pair detail.
func PrintStats(w io.Writer, r *Results) {
	stats.OutputRunStats(w, r)
}

// PrintJSON writes r as indented JSON to w.
func PrintJSON(w io.Writer, r *Results) error {
	return stats.OutputJSONResults(w, r)
}
