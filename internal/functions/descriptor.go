// Package functions defines the contract a spreadsheet function must satisfy
// to be compiled and evaluated, a constructed registry of them, the operator
// functions and a small built-in library.
package functions

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// ArgType is a set of accepted argument types.
type ArgType uint16

const (
	ArgAny ArgType = 1 << iota
	ArgRange
	ArgBoolean
	ArgNumber
	ArgString
	ArgDate
	ArgMeta
)

var argTypeNames = []struct {
	t    ArgType
	name string
}{
	{ArgAny, "any"},
	{ArgRange, "range"},
	{ArgBoolean, "boolean"},
	{ArgNumber, "number"},
	{ArgString, "string"},
	{ArgDate, "date"},
	{ArgMeta, "meta"},
}

func (t ArgType) Has(other ArgType) bool {
	return t&other != 0
}

func (t ArgType) String() string {
	var names []string
	for _, n := range argTypeNames {
		if t.Has(n.t) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ArgDescriptor describes one declared argument.
type ArgDescriptor struct {
	Name        string
	Description string
	Types       ArgType
	Optional    bool
	Repeating   bool
	Lazy        bool
	HasDefault  bool
	Default     value.Value
}

// IsRangeOnly reports whether the argument must be a reference.
func (a ArgDescriptor) IsRangeOnly() bool {
	return a.Types == ArgRange
}

// AcceptsRange reports whether a multi-cell range may be passed.
func (a ArgDescriptor) AcceptsRange() bool {
	return a.Types.Has(ArgRange)
}

func (a ArgDescriptor) IsMeta() bool {
	return a.Types.Has(ArgMeta)
}

// AcceptsErrors reports whether an errored value is handed to the function
// instead of short-circuiting the call.
func (a ArgDescriptor) AcceptsErrors() bool {
	return a.Types.Has(ArgAny)
}

// IsOptional reports whether the call site may omit the argument.
func (a ArgDescriptor) IsOptional() bool {
	return a.Optional || a.HasDefault
}

// ReturnFormatKind says where a function's display format comes from.
type ReturnFormatKind uint8

const (
	FormatNone ReturnFormatKind = iota
	FormatSpecific
	FormatFromArgument
)

// ReturnFormat is a function's declared output format.
type ReturnFormat struct {
	Kind   ReturnFormatKind
	Format string
}

// SpecificFormat declares a fixed output format.
func SpecificFormat(format string) ReturnFormat {
	return ReturnFormat{Kind: FormatSpecific, Format: format}
}

// FormatOfFirstArgument declares that the output inherits the format of the
// first argument.
func FormatOfFirstArgument() ReturnFormat {
	return ReturnFormat{Kind: FormatFromArgument}
}

// Arg is an argument as handed to Compute. Lazy arguments carry a thunk and
// must be forced; all others carry an operand. Omitted is set for declared
// arguments the call site did not supply.
type Arg struct {
	value.Operand
	Lazy    *value.Thunk[value.Operand]
	Omitted bool
}

// Resolve returns the operand, forcing a lazy argument.
func (a Arg) Resolve() value.Operand {
	if a.Lazy != nil {
		return a.Lazy.Force()
	}
	return a.Operand
}

// ComputeFunc implements a function. It returns a scalar or a matrix.
type ComputeFunc func(ctx *Context, args []Arg) value.Operand

// Descriptor is everything the compiler needs to know about a function.
type Descriptor struct {
	Name         string
	Description  string
	Args         []ArgDescriptor
	Compute      ComputeFunc
	ReturnType   ArgType
	ReturnFormat ReturnFormat
	Volatile     bool
}

// MinArgs is the count of arguments a call must supply.
func (d *Descriptor) MinArgs() int {
	n := 0
	for _, a := range d.Args {
		if !a.IsOptional() {
			n++
		}
	}
	return n
}

// MaxArgs is the count of declared arguments, or -1 when the trailing group
// repeats.
func (d *Descriptor) MaxArgs() int {
	if d.RepeatingGroup() > 0 {
		return -1
	}
	return len(d.Args)
}

// RepeatingGroup is the size of the trailing repeating group, 0 if none.
func (d *Descriptor) RepeatingGroup() int {
	n := 0
	for i := len(d.Args) - 1; i >= 0 && d.Args[i].Repeating; i-- {
		n++
	}
	return n
}

// ArgIndex maps the position of a call-site argument to the index of the
// declared argument it binds to, or -1.
func (d *Descriptor) ArgIndex(position int) int {
	if position < len(d.Args) {
		return position
	}
	group := d.RepeatingGroup()
	if group == 0 {
		return -1
	}
	first := len(d.Args) - group
	return first + (position-first)%group
}

// Clock provides the current time. Tests swap it for a fixed clock.
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator provides random numbers. Tests swap it for a fixed one.
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// Context is handed to every Compute call.
type Context struct {
	Locale   locale.Locale
	Clock    Clock
	Rand     RandomGenerator
	Logger   *slog.Logger
	Position value.Position
}

// NewContext returns a context with the canonical locale, wall clock and
// default random generator.
func NewContext(logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Locale: locale.Canonical(),
		Clock:  &WallClock{},
		Rand:   &DefaultRandomGenerator{},
		Logger: logger,
	}
}

// At returns a copy of the context positioned at pos.
func (c *Context) At(pos value.Position) *Context {
	cp := *c
	cp.Position = pos
	return &cp
}
