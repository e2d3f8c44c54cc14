package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	object Object
	layer  Layer
}

type layerPair struct {
	a Layer
	b Layer
}

func orderedPair(a, b Layer) layerPair {
	if a > b {
		a, b = b, a
	}
	return layerPair{a: a, b: b}
}

// Collection is the active object set. Objects are indexed by id and by
// anchor column so that eviction scales with the number of loaded columns.
type Collection struct {
	mu       sync.RWMutex
	objects  map[uuid.UUID]entry
	byColumn map[int]map[uuid.UUID]struct{}
	byLayer  map[Layer]int
	collide  map[layerPair]bool
}

func NewCollection() *Collection {
	return &Collection{
		objects:  make(map[uuid.UUID]entry),
		byColumn: make(map[int]map[uuid.UUID]struct{}),
		byLayer:  make(map[Layer]int),
		collide:  make(map[layerPair]bool),
	}
}

func (c *Collection) Add(object Object, layer Layer) error {
	if object == nil {
		return fmt.Errorf("nil object")
	}
	id := object.ID()
	if id == uuid.Nil {
		return fmt.Errorf("object missing id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.objects[id]; exists {
		return fmt.Errorf("object %s already registered", id)
	}
	c.objects[id] = entry{object: object, layer: layer}
	c.byLayer[layer]++

	column := object.Column()
	set := c.byColumn[column]
	if set == nil {
		set = make(map[uuid.UUID]struct{})
		c.byColumn[column] = set
	}
	set[id] = struct{}{}
	return nil
}

func (c *Collection) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(id)
}

func (c *Collection) removeLocked(id uuid.UUID) bool {
	e, ok := c.objects[id]
	if !ok {
		return false
	}
	delete(c.objects, id)
	c.byLayer[e.layer]--
	if c.byLayer[e.layer] <= 0 {
		delete(c.byLayer, e.layer)
	}
	column := e.object.Column()
	if set := c.byColumn[column]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(c.byColumn, column)
		}
	}
	return true
}

// EvictColumns removes every object whose anchor column satisfies evict and
// returns how many were removed. Only the column index is scanned.
func (c *Collection) EvictColumns(evict func(column int) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for column, set := range c.byColumn {
		if !evict(column) {
			continue
		}
		for id := range set {
			if c.removeLocked(id) {
				removed++
			}
		}
	}
	return removed
}

func (c *Collection) Get(id uuid.UUID) (Object, Layer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.objects[id]
	return e.object, e.layer, ok
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

func (c *Collection) Count(layer Layer) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byLayer[layer]
}

// Columns returns the sorted anchor columns currently loaded.
func (c *Collection) Columns() []int {
	c.mu.RLock()
	columns := make([]int, 0, len(c.byColumn))
	for column := range c.byColumn {
		columns = append(columns, column)
	}
	c.mu.RUnlock()
	sort.Ints(columns)
	return columns
}

// ColumnObjects returns a snapshot of the objects anchored at column.
func (c *Collection) ColumnObjects(column int) []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.byColumn[column]
	out := make([]Object, 0, len(set))
	for id := range set {
		out = append(out, c.objects[id].object)
	}
	return out
}

// Snapshot returns a copy of every object on layer. Callers may add or remove
// objects while walking the result.
func (c *Collection) Snapshot(layer Layer) []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Object, 0, c.byLayer[layer])
	for _, e := range c.objects {
		if e.layer == layer {
			out = append(out, e.object)
		}
	}
	return out
}

// Leaves returns a snapshot of every leaf in the collection.
func (c *Collection) Leaves() []*Leaf {
	objects := c.Snapshot(LayerLeaf)
	leaves := make([]*Leaf, 0, len(objects))
	for _, object := range objects {
		if leaf, ok := object.(*Leaf); ok {
			leaves = append(leaves, leaf)
		}
	}
	return leaves
}

// Blocks returns a snapshot of every block on layer.
func (c *Collection) Blocks(layer Layer) []*Block {
	objects := c.Snapshot(layer)
	blocks := make([]*Block, 0, len(objects))
	for _, object := range objects {
		if block, ok := object.(*Block); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (c *Collection) SetLayersCollide(a, b Layer, enabled bool) {
	c.mu.Lock()
	c.collide[orderedPair(a, b)] = enabled
	c.mu.Unlock()
}

func (c *Collection) LayersCollide(a, b Layer) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collide[orderedPair(a, b)]
}
