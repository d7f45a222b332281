package functions

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// Registry maps upper-case function names to descriptors. Registries are
// constructed and passed around; there is no process-wide instance.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// NewDefaultRegistry returns a registry holding the operators and the
// built-in library.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range Operators() {
		r.mustRegister(d)
	}
	for _, d := range Builtins() {
		r.mustRegister(d)
	}
	return r
}

func (r *Registry) mustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Register validates and adds a descriptor. Names are case-insensitive and
// must be unique.
func (r *Registry) Register(d *Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}
	name := strings.ToUpper(d.Name)
	d.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[name]; exists {
		return fmt.Errorf("function %s is already registered", name)
	}
	r.descriptors[name] = d
	return nil
}

// Lookup returns the descriptor for name, if any.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[strings.ToUpper(name)]
	return d, ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func validateDescriptor(d *Descriptor) error {
	if d == nil || strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("function descriptor must have a name")
	}
	if !isSymbolName(d.Name) {
		return fmt.Errorf("function name %q cannot be written in a formula", d.Name)
	}
	if d.Compute == nil {
		return fmt.Errorf("function %s has no compute implementation", d.Name)
	}

	seenRepeating := false
	seenOptional := false
	for i, arg := range d.Args {
		switch {
		case arg.Types == 0:
			return fmt.Errorf("function %s: argument %d (%s) accepts no type", d.Name, i+1, arg.Name)
		case arg.Lazy && arg.IsMeta():
			return fmt.Errorf("function %s: argument %d (%s) cannot be both lazy and meta", d.Name, i+1, arg.Name)
		case seenRepeating && !arg.Repeating:
			return fmt.Errorf("function %s: argument %d (%s) follows a repeating argument", d.Name, i+1, arg.Name)
		case seenOptional && !arg.IsOptional() && !arg.Repeating:
			return fmt.Errorf("function %s: required argument %d (%s) follows an optional one", d.Name, i+1, arg.Name)
		}
		seenRepeating = seenRepeating || arg.Repeating
		seenOptional = seenOptional || arg.IsOptional()
	}
	return nil
}

// isSymbolName reports whether name lexes as a single symbol: a letter or
// underscore followed by letters, digits, underscores and dots.
func isSymbolName(name string) bool {
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return name != ""
}
