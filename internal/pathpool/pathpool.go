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

// Package pathpool interns directory and file name strings so that the many
// PathInfo values produced while walking a large tree don't each hold their
// own copy of common directory components.
package pathpool

import "path/filepath"

// Pathsplit holds a directory name and a file name separately so the
// (usually highly repeated) Dirname string can be shared across many
// Pathsplit values via a Pool.
type Pathsplit struct {
	Dirname  string
	Filename string
}

// Join returns the full pathname.
func (p Pathsplit) Join() string {
	return filepath.Join(p.Dirname, p.Filename)
}

// Split splits pathname into a Pathsplit, interning the directory component
// through pool so repeated directories share one backing string.
func Split(pool *Pool, pathname string) Pathsplit {
	dir, file := filepath.Split(pathname)
	if len(dir) > 1 && dir[len(dir)-1] == filepath.Separator {
		dir = dir[:len(dir)-1]
	}
	return Pathsplit{Dirname: pool.intern(dir), Filename: file}
}

// Pool is a simple string interning pool, unpinning duplicate backing arrays
// the way a map[string]string based intern table does: storing a freshly
// copied substring as the map's canonical value lets the original (possibly
// much larger) buffer it was cut from be garbage collected.
type Pool struct {
	strs map[string]string
}

// NewPool returns an initialized, empty Pool.
func NewPool() *Pool {
	return &Pool{strs: make(map[string]string)}
}

// intern returns the canonical copy of s held by the pool, storing s as the
// canonical copy if this is the first time it's been seen.
func (p *Pool) intern(s string) string {
	if p == nil {
		return s
	}
	if canon, ok := p.strs[s]; ok {
		return canon
	}
	// Copy s so the canonical copy doesn't keep alive whatever larger
	// string/buffer it may have been sliced from.
	b := make([]byte, len(s))
	copy(b, s)
	canon := string(b)
	p.strs[canon] = canon
	return canon
}

// Len reports how many distinct strings are currently interned.
func (p *Pool) Len() int {
	return len(p.strs)
}
