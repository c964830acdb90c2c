package sim

import "fmt"

// Arena owns every entity of a run, indexed by dense handle.
// The id → handle table is filled while entities are created and is read-only afterwards.
type Arena struct {
	entities []*Entity
	byID     map[string]Handle
	counters map[string]int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		entities: make([]*Entity, 0),
		byID:     make(map[string]Handle),
		counters: make(map[string]int),
	}
}

// add creates one entity with the next free id for prefix.
func (a *Arena) add(prefix string, t *EntityType, build func(id string) (Model, error)) (*Entity, error) {
	n := a.counters[prefix]
	id := fmt.Sprintf("%s_%d", prefix, n)
	if _, dup := a.byID[id]; dup {
		return nil, fmt.Errorf("entity id %s already exists", id)
	}
	model, err := build(id)
	if err != nil {
		return nil, fmt.Errorf("creating %s (%s): %w", id, t.Name, err)
	}
	a.counters[prefix] = n + 1
	e := &Entity{
		Handle: Handle(len(a.entities)),
		ID:     id,
		Type:   t,
		Model:  model,
	}
	a.entities = append(a.entities, e)
	a.byID[id] = e.Handle
	return e, nil
}

// Len is the number of entities.
func (a *Arena) Len() int { return len(a.entities) }

// At returns the entity behind a handle.
func (a *Arena) At(h Handle) *Entity { return a.entities[h] }

// Lookup resolves an entity id.
func (a *Arena) Lookup(id string) (*Entity, error) {
	h, ok := a.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEntity, id)
	}
	return a.entities[h], nil
}

// Entities returns all entities in handle order.
func (a *Arena) Entities() []*Entity { return a.entities }
