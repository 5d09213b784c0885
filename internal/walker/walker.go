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

// Package walker yields the set of regular file pathnames eligible for
// consideration, honoring include/exclude filters and never following a
// symlinked directory or file.
package walker

import (
	"path/filepath"
	"regexp"

	"github.com/apex/log"
	"github.com/karrick/godirwalk"
)

// Filters controls which directories and files the walk admits.
type Filters struct {
	DirExcludes  []string
	FileIncludes []string
	FileExcludes []string
	// IgnoreErrors selects how a failed directory walk is logged: as a
	// warning when true, as an error when false. Either way the walk of
	// that directory stops at its first error and Walk goes on with the
	// next directory; unreadable entries are not skipped one by one.
	IgnoreErrors bool
}

// Walk returns every eligible regular file pathname under dirs, plus any of
// files that pass the include/exclude filters, through a channel. Symlinked
// directories are never descended into, and symlinked files are never
// yielded — only Mode().IsRegular() entries are.
func Walk(dirs []string, files []string, f Filters) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, dir := range dirs {
			err := godirwalk.Walk(dir, &godirwalk.Options{
				FollowSymbolicLinks: false,
				Callback: func(osPathname string, de *godirwalk.Dirent) error {
					if de.ModeType().IsDir() {
						if dir != osPathname && isMatched(de.Name(), f.DirExcludes) {
							return filepath.SkipDir
						}
						return nil
					}
					if de.ModeType().IsRegular() {
						if isFileIncluded(de.Name(), f) {
							out <- osPathname
						}
					}
					// Symlinks and other special file types are
					// silently skipped; they are never link
					// candidates.
					return nil
				},
			})
			if err != nil {
				if f.IgnoreErrors {
					log.WithFields(log.Fields{"dir": dir, "err": err}).Warn("skipping unreadable directory")
					continue
				}
				log.WithFields(log.Fields{"dir": dir, "err": err}).Error("walk failed")
			}
		}
		for _, pathname := range files {
			if isFileIncluded(filepath.Base(pathname), f) {
				out <- pathname
			}
		}
	}()
	return out
}

func isMatched(name string, patterns []string) bool {
	for _, p := range patterns {
		if matched, err := regexp.MatchString(p, name); matched && err == nil {
			return true
		}
	}
	return false
}

func isFileIncluded(name string, f Filters) bool {
	if len(f.FileExcludes) == 0 && len(f.FileIncludes) == 0 {
		return true
	}
	if len(f.FileIncludes) > 0 && isMatched(name, f.FileIncludes) {
		return true
	}
	if len(f.FileExcludes) > 0 && !isMatched(name, f.FileExcludes) {
		return true
	}
	return false
}
