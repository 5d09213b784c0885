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

// Package xattrfp builds an order-independent fingerprint of a file's
// extended attributes, so two files can be compared for xattr equality
// without depending on the order xattr.LList happens to return names in.
package xattrfp

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/xattr"
)

// Fingerprint is a digest of a file's full xattr name/value set. Two files
// with equal Fingerprints are considered to have equal extended attributes;
// this is a probabilistic guarantee (a 64-bit hash collision is possible,
// but negligible), exactly as the content digest cache already accepts for
// file bodies.
type Fingerprint uint64

// Empty is the Fingerprint of a file with no extended attributes.
const Empty Fingerprint = 0

// Compute returns pathname's xattr Fingerprint, never following a trailing
// symlink.
func Compute(pathname string) (Fingerprint, error) {
	names, err := xattr.LList(pathname)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return Empty, nil
	}
	sort.Strings(names)

	h := xxhash.New()
	for _, name := range names {
		val, err := xattr.LGet(pathname, name)
		if err != nil {
			return 0, err
		}
		h.WriteString(name)
		h.Write([]byte{0})
		h.Write(val)
		h.Write([]byte{0})
	}
	return Fingerprint(h.Sum64()), nil
}

// Equal reports whether two pathnames have identical extended attribute
// sets, by fully comparing name/value pairs rather than trusting the
// fingerprint alone — used as the authoritative check once two files are
// otherwise believed to be linkable.
func Equal(a, b string) (bool, error) {
	an, err := xattr.LList(a)
	if err != nil {
		return false, err
	}
	bn, err := xattr.LList(b)
	if err != nil {
		return false, err
	}
	if len(an) != len(bn) {
		return false, nil
	}
	sort.Strings(an)
	sort.Strings(bn)
	for i, name := range an {
		if name != bn[i] {
			return false, nil
		}
		av, err := xattr.LGet(a, name)
		if err != nil {
			return false, err
		}
		bv, err := xattr.LGet(b, name)
		if err != nil {
			return false, err
		}
		if len(av) != len(bv) {
			return false, nil
		}
		for i := range av {
			if av[i] != bv[i] {
				return false, nil
			}
		}
	}
	return true, nil
}
