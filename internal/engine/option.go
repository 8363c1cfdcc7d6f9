package engine

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
)

// OptionKind identifies the declared type of an engine option.
type OptionKind int

const (
	KindCheck OptionKind = iota + 1
	KindSpin
	KindCombo
	KindString
	KindButton
)

func (k OptionKind) String() string {
	switch k {
	case KindCheck:
		return "check"
	case KindSpin:
		return "spin"
	case KindCombo:
		return "combo"
	case KindString:
		return "string"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// Option is a configurable parameter declared by the engine during the
// handshake. Concrete types are CheckOption, SpinOption, ComboOption,
// StringOption and ButtonOption.
type Option interface {
	Kind() OptionKind
	// Current returns the value to send with setoption, false when unset.
	Current() (string, bool)
	// DefaultValue renders the engine-declared default.
	DefaultValue() string
	// apply sets the current value when v has the matching kind.
	apply(v any) bool
}

type CheckOption struct {
	Default bool
	Value   *bool
}

func (o *CheckOption) Kind() OptionKind { return KindCheck }

func (o *CheckOption) Current() (string, bool) {
	if o.Value == nil {
		return "", false
	}
	return strconv.FormatBool(*o.Value), true
}

func (o *CheckOption) DefaultValue() string { return strconv.FormatBool(o.Default) }

func (o *CheckOption) apply(v any) bool {
	b, ok := v.(bool)
	if !ok {
		return false
	}
	o.Value = &b
	return true
}

type SpinOption struct {
	Min     int64
	Max     int64
	Default int64
	Value   *int64
}

func (o *SpinOption) Kind() OptionKind { return KindSpin }

func (o *SpinOption) Current() (string, bool) {
	if o.Value == nil {
		return "", false
	}
	return strconv.FormatInt(*o.Value, 10), true
}

func (o *SpinOption) DefaultValue() string { return strconv.FormatInt(o.Default, 10) }

func (o *SpinOption) apply(v any) bool {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	default:
		return false
	}
	o.Value = &n
	return true
}

type ComboOption struct {
	Default string
	Vars    []string
	Value   *string
}

func (o *ComboOption) Kind() OptionKind { return KindCombo }

func (o *ComboOption) Current() (string, bool) {
	if o.Value == nil {
		return "", false
	}
	return *o.Value, true
}

func (o *ComboOption) DefaultValue() string { return o.Default }

func (o *ComboOption) apply(v any) bool {
	s, ok := v.(string)
	if !ok || !slices.Contains(o.Vars, s) {
		return false
	}
	o.Value = &s
	return true
}

type StringOption struct {
	Default string
	Value   *string
}

func (o *StringOption) Kind() OptionKind { return KindString }

func (o *StringOption) Current() (string, bool) {
	if o.Value == nil {
		return "", false
	}
	return *o.Value, true
}

func (o *StringOption) DefaultValue() string { return o.Default }

func (o *StringOption) apply(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	o.Value = &s
	return true
}

// ButtonOption triggers an engine action and carries no value.
type ButtonOption struct{}

func (o *ButtonOption) Kind() OptionKind        { return KindButton }
func (o *ButtonOption) Current() (string, bool) { return "", false }
func (o *ButtonOption) DefaultValue() string    { return "" }
func (o *ButtonOption) apply(any) bool          { return false }

// Options holds engine options keyed by name in declaration order.
type Options struct {
	names  []string
	byName map[string]Option
}

func NewOptions() *Options {
	return &Options{byName: make(map[string]Option)}
}

// Put adds or replaces an option. A redeclared option keeps its original
// position.
func (o *Options) Put(name string, opt Option) {
	if _, exists := o.byName[name]; !exists {
		o.names = append(o.names, name)
	}
	o.byName[name] = opt
}

func (o *Options) Get(name string) (Option, bool) {
	opt, ok := o.byName[name]
	return opt, ok
}

func (o *Options) Len() int {
	return len(o.names)
}

func (o *Options) Names() []string {
	return slices.Clone(o.names)
}

// All iterates options in declaration order.
func (o *Options) All() iter.Seq2[string, Option] {
	return func(yield func(string, Option) bool) {
		for _, name := range o.names {
			if !yield(name, o.byName[name]) {
				return
			}
		}
	}
}

// Set applies v to the named option. It fails when the option is unknown
// or v does not match the declared kind.
func (o *Options) Set(name string, v any) error {
	opt, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("unknown option %q", name)
	}
	if !opt.apply(v) {
		return fmt.Errorf("option %q (%s) rejects value %v (%T)", name, opt.Kind(), v, v)
	}
	return nil
}
