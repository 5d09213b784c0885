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

// Package maxnlink determines the LINK_MAX value (the maximum number of
// hard links a single inode may have) for a given filesystem path.
package maxnlink

import (
	"os/exec"
	"strconv"
	"strings"
)

// DefaultMax is used whenever getconf is unavailable or fails; it is a
// conservative value well below the limits of common filesystems (ext4's
// 65000, for instance), chosen so a wrong guess fails safe by planning
// too few links rather than overflowing LINK_MAX.
const DefaultMax uint64 = 32000

// conservativeMin is the smallest value trusted from getconf's output;
// some systems misreport an implausibly small LINK_MAX (e.g. 1), which is
// treated as "unknown" rather than authoritative.
const conservativeMin uint64 = 8

// Lookup returns the LINK_MAX value applicable to pathname's filesystem,
// querying getconf(1) and falling back to DefaultMax if the lookup fails
// or returns an implausible value.
func Lookup(pathname string) uint64 {
	for _, getconf := range []string{"/usr/bin/getconf", "/bin/getconf"} {
		out, err := exec.Command(getconf, "LINK_MAX", pathname).Output()
		if err != nil {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
		if err != nil || n < conservativeMin {
			continue
		}
		return n
	}
	return DefaultMax
}
