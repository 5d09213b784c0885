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

// Package inode models the on-disk identity and metadata of a single inode,
// independent of any of the pathnames that may refer to it.
package inode

import (
	"os"
	"syscall"
	"time"
)

// Ino is an inode number, unique only within a single device.
type Ino uint64

// Id uniquely identifies an inode across devices: (device, inode number).
type Id struct {
	Dev uint64
	Ino Ino
}

// StatInfo is the subset of an lstat(2) result that matters for deciding
// whether two files' metadata is compatible for linking.
type StatInfo struct {
	Size  int64
	Ino   Ino
	Nlink uint64
	Uid   uint32
	Gid   uint32
	// Mode holds only the permission bits (no file-type or setuid/setgid/
	// sticky bits), since those are what the matching policy compares.
	Mode os.FileMode
	// RawMode is the unmasked mode word as returned by lstat(2), used to
	// detect setuid/setgid/sticky bits that Mode deliberately discards.
	RawMode uint32
	Mtim    time.Time
}

// HasSetuid reports whether the setuid bit is set in the original lstat(2)
// mode.
func (s StatInfo) HasSetuid() bool { return s.RawMode&syscall.S_ISUID != 0 }

// HasSetgid reports whether the setgid bit is set in the original lstat(2)
// mode.
func (s StatInfo) HasSetgid() bool { return s.RawMode&syscall.S_ISGID != 0 }

// HasSticky reports whether the sticky bit is set in the original lstat(2)
// mode.
func (s StatInfo) HasSticky() bool { return s.RawMode&syscall.S_ISVTX != 0 }

// DevStatInfo adds the device id to a StatInfo, giving a full Id.
type DevStatInfo struct {
	Dev uint64
	StatInfo
}

// Id returns the (Dev, Ino) pair identifying this inode.
func (d DevStatInfo) Id() Id {
	return Id{Dev: d.Dev, Ino: d.Ino}
}

// LStatInfo lstats pathname (never following a terminal symlink) and
// returns its DevStatInfo.
func LStatInfo(pathname string) (DevStatInfo, error) {
	var stat syscall.Stat_t
	if err := syscall.Lstat(pathname, &stat); err != nil {
		return DevStatInfo{}, err
	}
	return DevStatInfo{
		Dev: uint64(stat.Dev),
		StatInfo: StatInfo{
			Size:    stat.Size,
			Ino:     Ino(stat.Ino),
			Nlink:   uint64(stat.Nlink),
			Uid:     stat.Uid,
			Gid:     stat.Gid,
			Mode:    os.FileMode(stat.Mode&0777) & os.ModePerm,
			RawMode: uint32(stat.Mode),
			Mtim:    time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec),
		},
	}, nil
}

// EqualTime reports whether two StatInfo values have the same mtime.
func (s StatInfo) EqualTime(o StatInfo) bool {
	return s.Mtim.Equal(o.Mtim)
}

// EqualMode reports whether two StatInfo values have the same permission bits.
func (s StatInfo) EqualMode(o StatInfo) bool {
	return s.Mode == o.Mode
}

// EqualOwnership reports whether two StatInfo values have the same uid/gid.
func (s StatInfo) EqualOwnership(o StatInfo) bool {
	return s.Uid == o.Uid && s.Gid == o.Gid
}
