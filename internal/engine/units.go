package engine

import (
	"github.com/vogtb/go-formula/internal/compiler"
	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/functions"
)

// unitCache interns compiled units by formula shape with reference counts.
// A unit is evicted when no cell uses its shape anymore.
type unitCache struct {
	registry *functions.Registry
	units    map[string]*compiler.Unit
	refs     map[string]int
}

func newUnitCache(registry *functions.Registry) *unitCache {
	return &unitCache{
		registry: registry,
		units:    make(map[string]*compiler.Unit),
		refs:     make(map[string]int),
	}
}

// acquire returns the unit for the formula's shape, compiling it only the
// first time the shape is seen
func (c *unitCache) acquire(text string) (*compiledFormula, error) {
	nf, err := compiler.Normalize(text)
	if err != nil {
		return nil, err
	}
	unit, ok := c.units[nf.Shape]
	if !ok {
		unit, err = compiler.Compile(nf, c.registry)
		if err != nil {
			return nil, err
		}
		c.units[nf.Shape] = unit
	}
	c.refs[nf.Shape]++
	return &compiledFormula{unit: unit, nf: nf, deps: compiler.DependenciesOf(nf)}, nil
}

// release drops one use of a shape
func (c *unitCache) release(shape string) {
	c.refs[shape]--
	if c.refs[shape] <= 0 {
		delete(c.refs, shape)
		delete(c.units, shape)
	}
}

// Len returns the number of distinct shapes held.
func (c *unitCache) Len() int {
	return len(c.units)
}

type compiledFormula struct {
	unit *compiler.Unit
	nf   *formula.NormalizedFormula
	deps compiler.Dependencies
}
