// Package file provides a pflag.Value implementation for flags holding a
// file path. The path is stat'ed when set so commands can distinguish
// between a default that happens to be absent and an explicit path that
// must exist.
package file

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/pflag"
)

// Type is the type name for the path flag.
const Type = "path"

// Flag is a path flag. Its FileInfo is populated when the path exists at
// the time it was set.
type Flag struct {
	path string
	fs.FileInfo
}

func (f *Flag) String() string {
	return f.path
}

func (f *Flag) Type() string {
	return Type
}

func (f *Flag) Set(s string) error {
	f.path = s
	info, err := os.Stat(s)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("unable to stat path %q: %w", f.path, err)
		}
		f.FileInfo = nil
		return nil
	}
	f.FileInfo = info
	return nil
}

// Exists reports whether the path pointed to an existing file when set.
func (f *Flag) Exists() bool {
	return f.FileInfo != nil
}

// Open opens the file for reading. It fails when the path does not exist.
func (f *Flag) Open() (io.ReadCloser, error) {
	if !f.Exists() {
		return nil, fmt.Errorf("file %q does not exist", f.path)
	}
	return os.Open(f.path)
}

func Var(f *pflag.FlagSet, name string, value string, usage string) {
	flag := &Flag{}
	_ = flag.Set(value)
	f.Var(flag, name, usage)
}

func VarP(f *pflag.FlagSet, name, shorthand string, value string, usage string) {
	flag := &Flag{}
	_ = flag.Set(value)
	f.VarP(flag, name, shorthand, usage)
}

func Get(f *pflag.FlagSet, name string) (*Flag, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return nil, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	value, ok := flag.Value.(*Flag)
	if !ok {
		return nil, fmt.Errorf("trying to get %s value of flag of type %s", Type, flag.Value.Type())
	}
	return value, nil
}
