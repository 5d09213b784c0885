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

// Package progress renders a single, overwriting status line to a
// terminal while a scan is in progress, showing file/byte throughput.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/ssh/terminal"
)

// Progress is implemented by both the real TTY reporter and a disabled
// no-op, so callers never need to branch on whether output is a terminal.
type Progress interface {
	// Show records that files more files and bytes more bytes have been
	// processed; the status line itself is redrawn by a background loop
	// every redrawInterval.
	Show(files, bytes uint64)
	// Clear erases the status line, e.g. before printing the final report.
	Clear()
	// Done stops any background redraw timer.
	Done()
}

// disabled is used whenever output isn't a terminal, or progress reporting
// was turned off.
type disabled struct{}

func (disabled) Show(uint64, uint64) {}
func (disabled) Clear()              {}
func (disabled) Done()               {}

// New returns a Progress appropriate for w: a live ttyProgress if w is a
// terminal and enabled is true, otherwise a disabled no-op.
func New(w io.Writer, fd int, enabled bool) Progress {
	if !enabled || !terminal.IsTerminal(fd) {
		return disabled{}
	}
	p := &ttyProgress{w: w, fd: fd, start: time.Now()}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.redrawLoop()
	return p
}

// ttyProgress periodically redraws a single status line showing files and
// bytes processed so far, and an instantaneous files-per-second estimate.
type ttyProgress struct {
	w     io.Writer
	fd    int
	start time.Time

	mu        sync.Mutex
	files     uint64
	bytes     uint64
	lastDraw  time.Time
	lastFiles uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

const redrawInterval = 200 * time.Millisecond

func (p *ttyProgress) redrawLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.draw()
		case <-p.stop:
			return
		}
	}
}

func (p *ttyProgress) Show(files, bytes uint64) {
	p.mu.Lock()
	p.files += files
	p.bytes += bytes
	p.mu.Unlock()
}

func (p *ttyProgress) draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(p.lastDraw).Seconds()
	fps := 0.0
	if elapsed > 0 {
		fps = float64(p.files-p.lastFiles) / elapsed
	}
	p.lastDraw = now
	p.lastFiles = p.files

	width := 80
	if w, _, err := terminal.GetSize(p.fd); err == nil && w > 0 {
		width = w
	}
	line := fmt.Sprintf("\r%d files, %s (%.0f files/s)", p.files, humanize.Bytes(p.bytes), fps)
	if len(line) > width {
		line = line[:width]
	}
	fmt.Fprint(p.w, line)
}

func (p *ttyProgress) Clear() {
	fmt.Fprint(p.w, "\r\033[K")
}

func (p *ttyProgress) Done() {
	close(p.stop)
	p.wg.Wait()
	p.Clear()
}
