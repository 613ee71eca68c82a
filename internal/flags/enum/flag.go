// Package enum provides a pflag.Value implementation for flags that accept
// exactly one value out of a fixed option set. The first option is the
// default.
package enum

import (
	"fmt"
	"slices"

	"github.com/spf13/pflag"
)

const Type = "enum"

// Flag holds the currently selected value and the allowed option set.
type Flag struct {
	value   string
	options []string
}

// New returns an enum flag over the given options. The first option becomes
// the default value.
func New(options ...string) *Flag {
	if len(options) == 0 {
		panic("enum: options must not be empty")
	}
	return &Flag{value: options[0], options: options}
}

func (f *Flag) Type() string {
	return Type
}

func (f *Flag) String() string {
	return f.value
}

func (f *Flag) Set(value string) error {
	if !slices.Contains(f.options, value) {
		return fmt.Errorf("expected one of %q", f.options)
	}
	f.value = value
	return nil
}

// Options returns the allowed option set in registration order.
func (f *Flag) Options() []string {
	return slices.Clone(f.options)
}

// Var registers an enum flag on the flag set. The usage string is extended
// with the sorted option list.
func Var(f *pflag.FlagSet, name string, options []string, usage string) {
	f.Var(New(options...), name, usageWithOptions(usage, options))
}

// VarP registers an enum flag with a shorthand.
func VarP(f *pflag.FlagSet, name, shorthand string, options []string, usage string) {
	f.VarP(New(options...), name, shorthand, usageWithOptions(usage, options))
}

// Get returns the current value of the named enum flag.
func Get(f *pflag.FlagSet, name string) (string, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return "", fmt.Errorf("flag accessed but not defined: %s", name)
	}
	if flag.Value.Type() != Type {
		return "", fmt.Errorf("trying to get %s value of flag of type %s", Type, flag.Value.Type())
	}
	return flag.Value.String(), nil
}

func usageWithOptions(usage string, options []string) string {
	sorted := slices.Clone(options)
	slices.Sort(sorted)
	return fmt.Sprintf("%s\n(must be one of %v)", usage, sorted)
}
