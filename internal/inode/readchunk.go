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

package inode

import (
	"errors"
	"io"
)

// maxZeroReads bounds how many consecutive zero-byte, nil-error reads
// ReadChunk will tolerate before giving up; a small number of pathological
// io.Readers return (0, nil) repeatedly instead of blocking or erroring.
const maxZeroReads = 100

// ReadChunk fills buf completely from f, short only at EOF, retrying on
// partial reads the way io.ReadFull does but tolerating (0, nil) reads up
// to a point instead of treating them as an immediate error.
func ReadChunk(f io.Reader, buf []byte) (int, error) {
	total := 0
	zeroReads := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		if n == 0 && err == nil {
			zeroReads++
			if zeroReads > maxZeroReads {
				return total, errors.New("inode: ReadChunk: too many zero-byte reads")
			}
			continue
		}
		zeroReads = 0
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
