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

// Package cliapp builds the cobra/pflag command line for hardlinkable and
// translates parsed flags into a hardlinkable.Options before invoking a Run.
package cliapp

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chadnetzer/hardlinkable"
)

// cliOptions holds every flag value, plus the embedded hardlinkable.Options
// that ToOptions() assembles them into. Because pflag bools default to
// false and only ever get set to true, options we want to default "on"
// (stats output, progress output) are represented as their negation here
// and flipped in ToOptions.
type cliOptions struct {
	StatsOutputDisabled    bool
	ProgressOutputDisabled bool
	JSONOutputEnabled      bool
	Verbosity              int

	CLIMinFileSize  uintN
	CLIMaxFileSize  uintN
	CLIFileIncludes regexArray
	CLIFileExcludes regexArray
	CLIDirExcludes  regexArray

	EnableLinking bool

	hardlinkable.Options
}

// ToOptions converts parsed CLI flags into a hardlinkable.Options.
func (c cliOptions) ToOptions() hardlinkable.Options {
	o := c.Options
	o.StatsOutputEnabled = !c.StatsOutputDisabled
	o.ShowProgress = !c.ProgressOutputDisabled
	o.JSONOutputEnabled = c.JSONOutputEnabled
	o.Verbosity = c.Verbosity
	o.MinFileSize = c.CLIMinFileSize.n
	o.MaxFileSize = c.CLIMaxFileSize.n
	o.FileIncludes = c.CLIFileIncludes.vals
	o.FileExcludes = c.CLIFileExcludes.vals
	o.DirExcludes = c.CLIDirExcludes.vals
	o.LinkingEnabled = c.EnableLinking
	return o
}

// regexArray is a pflag.Value that displays "RE" instead of "stringArray"
// in usage text, and accumulates every repeated occurrence of the flag.
type regexArray struct {
	flag.Value
	vals []string
}

func (r *regexArray) String() string { return "<nil>" }

func (r *regexArray) Set(val string) error {
	r.vals = append(r.vals, val)
	return nil
}

func (r *regexArray) Type() string { return "RE" }

// uintN is a pflag.Value accepting humanized sizes ("1k", "4m", "2g") and
// displaying "N" instead of "uint" in usage text.
type uintN struct {
	flag.Value
	n uint64
}

func (u *uintN) String() string { return strconv.FormatUint(u.n, 10) }

func (u *uintN) Set(s string) error {
	n, err := humanizedUint64(s)
	if err != nil {
		return err
	}
	u.n = n
	return nil
}

func (u *uintN) Type() string { return "N" }

// humanizedUint64 parses strings like "1k", "4m", "2g" (power-of-1024
// suffixes) or a bare decimal number into a uint64 byte count.
func humanizedUint64(s string) (uint64, error) {
	s = strings.ToLower(s)
	mult := map[string]uint64{
		"k": 1 << 10,
		"m": 1 << 20,
		"g": 1 << 30,
		"t": 1 << 40,
		"p": 1 << 50,
	}
	if s == "" {
		return 0, errors.New("cliapp: empty size value")
	}
	c := s[len(s)-1:]
	if _, ok := mult[c]; !ok {
		return strconv.ParseUint(s, 10, 64)
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint64/mult[c] {
		return 0, errors.New("cliapp: size value is too large for 64 bits")
	}
	return n * mult[c], nil
}

var cfgFile string

// NewRootCmd builds the cobra root command for hardlinkable.
func NewRootCmd() *cobra.Command {
	co := &cliOptions{}
	co.CLIMinFileSize.n = 1

	root := &cobra.Command{
		Use:                   "hardlinkable [OPTIONS] dir1 [dir2 ...]",
		Short:                 "Save space by hardlinking identical files",
		Long:                  "Scans one or more directory trees, finds byte-identical regular files,\nand reports (or performs) a plan to consolidate them via hard links.",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, files, err := separateArgs(args)
			if err != nil {
				return err
			}
			if co.CLIMaxFileSize.n > 0 && co.CLIMaxFileSize.n < co.CLIMinFileSize.n {
				return fmt.Errorf("cliapp: min-size (%d) cannot be larger than max-size (%d)", co.CLIMinFileSize.n, co.CLIMaxFileSize.n)
			}
			opts := co.ToOptions()
			opts.Directories = dirs
			opts.Files = files
			return run(cmd, opts)
		},
	}

	cobra.OnInitialize(initConfig)

	flg := root.Flags()
	flg.CountVarP(&co.Verbosity, "verbose", "v", "Increase verbosity level (up to 3 times)")
	flg.BoolVarP(&co.StatsOutputDisabled, "no-stats", "q", false, "Do not print the final stats")
	flg.BoolVar(&co.ProgressOutputDisabled, "no-progress", false, "Disable progress output while processing")
	flg.BoolVar(&co.JSONOutputEnabled, "json", false, "Output results as JSON")
	flg.BoolVar(&co.EnableLinking, "enable-linking", false, "Actually perform the planned links")

	flg.BoolVarP(&co.RequireSameName, "same-name", "f", false, "Filenames need to be identical")
	flg.BoolVarP(&co.IgnorePerms, "ignore-perms", "p", false, "File permissions need not match")
	flg.BoolVarP(&co.IgnoreTime, "ignore-time", "t", false, "File modification times need not match")
	flg.BoolVar(&co.IgnoreOwner, "ignore-owner", false, "File uid/gid need not match")
	flg.BoolVar(&co.IgnoreXattr, "ignore-xattr", false, "Xattrs need not match")
	flg.BoolVarP(&co.ContentOnly, "content-only", "c", false, "Only file contents have to match")
	flg.BoolVar(&co.UseNewestLink, "use-newest-link", false, "Update a link source's mtime/uid/gid from the newer absorbed file")
	flg.BoolVar(&co.IgnoreWalkErrors, "ignore-walk-errors", false, "Log directory walk failures as warnings instead of errors")

	flg.VarP(&co.CLIMinFileSize, "min-size", "s", "Minimum file size")
	flg.VarP(&co.CLIMaxFileSize, "max-size", "S", "Maximum file size")

	flg.VarP(&co.CLIFileIncludes, "match", "m", "Regex(es) used to match files to include")
	flg.VarP(&co.CLIFileExcludes, "exclude", "x", "Regex(es) used to exclude files")
	flg.Var(&co.CLIDirExcludes, "exclude-dir", "Regex(es) used to exclude directories")
	flg.SortFlags = false

	return root
}

// run invokes the library Run/RunWithProgress and renders the report.
func run(cmd *cobra.Command, opts hardlinkable.Options) error {
	var (
		res *hardlinkable.Results
		err error
	)
	if opts.ShowProgress {
		res, err = hardlinkable.RunWithProgress(opts, cmd.OutOrStdout())
	} else {
		res, err = hardlinkable.Run(opts)
	}
	if err != nil {
		return err
	}

	if opts.JSONOutputEnabled {
		return hardlinkable.PrintJSON(cmd.OutOrStdout(), res)
	}
	if opts.StatsOutputEnabled {
		hardlinkable.PrintResults(cmd.OutOrStdout(), res)
	}
	return nil
}

// separateArgs lstats every argument and splits it into directories and
// individual files, rejecting anything else (symlinks, devices, etc. are
// not valid scan roots even though they may be valid scan *targets* once
// walked).
func separateArgs(args []string) (dirs, files []string, err error) {
	seen := make(map[string]struct{})
	for _, name := range args {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		fi, statErr := os.Lstat(name)
		if statErr != nil {
			return nil, nil, statErr
		}
		switch {
		case fi.IsDir():
			dirs = append(dirs, name)
		case fi.Mode().IsRegular():
			files = append(files, name)
		default:
			return nil, nil, fmt.Errorf("cliapp: %q is neither a directory nor a regular file", name)
		}
	}
	return dirs, files, nil
}

// initConfig reads an optional ~/.hardlinkable.yaml config file and
// environment variable overrides via viper.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".hardlinkable")
	}
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
