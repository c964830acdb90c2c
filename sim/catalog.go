package sim

import (
	"fmt"
	"sort"
)

// Catalog is the set of entity types a World can instantiate.
// It is built explicitly by the caller; there is no package-level registry.
type Catalog struct {
	types map[string]*EntityType
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*EntityType)}
}

// Register adds an entity type. Registering the same name twice is an error.
func (c *Catalog) Register(t *EntityType) error {
	if t.Name == "" {
		return fmt.Errorf("entity type has no name")
	}
	if t.StepSize <= 0 {
		return fmt.Errorf("entity type %s: step size must be > 0, got %d", t.Name, t.StepSize)
	}
	if t.New == nil {
		return fmt.Errorf("entity type %s: no constructor", t.Name)
	}
	if _, dup := c.types[t.Name]; dup {
		return fmt.Errorf("entity type %s registered twice", t.Name)
	}
	c.types[t.Name] = t
	return nil
}

// MustRegister is Register for static type tables; it panics on error.
func (c *Catalog) MustRegister(types ...*EntityType) {
	for _, t := range types {
		if err := c.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the type registered under name.
func (c *Catalog) Lookup(name string) (*EntityType, error) {
	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, name)
	}
	return t, nil
}

// Names lists registered type names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
