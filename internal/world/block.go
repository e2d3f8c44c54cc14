package world

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Tag identifies what a world object represents.
type Tag string

const (
	TagGround Tag = "ground"
	TagTrunk  Tag = "trunk"
	TagLeaf   Tag = "leaf"
)

// Layer groups objects for collision enablement.
type Layer int

const (
	LayerGround Layer = iota
	LayerTrunk
	LayerLeaf
	LayerAvatar
)

func (l Layer) String() string {
	switch l {
	case LayerGround:
		return "ground"
	case LayerTrunk:
		return "trunk"
	case LayerLeaf:
		return "leaf"
	case LayerAvatar:
		return "avatar"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Object is anything the collection can hold. Column is the anchor column
// whose eviction removes the object.
type Object interface {
	ID() uuid.UUID
	Tag() Tag
	Column() int
}

// Block is an immovable, grid aligned cell of ground or trunk.
type Block struct {
	id     uuid.UUID
	X      int
	Y      int
	tag    Tag
	column int
}

// NewBlock creates a block at (x, y) anchored to its own column.
func NewBlock(x, y int, tag Tag) *Block {
	return NewAnchoredBlock(x, y, x, tag)
}

// NewAnchoredBlock creates a block that belongs to the given anchor column.
func NewAnchoredBlock(x, y, column int, tag Tag) *Block {
	return &Block{
		id:     uuid.New(),
		X:      x,
		Y:      y,
		tag:    tag,
		column: column,
	}
}

func (b *Block) ID() uuid.UUID { return b.id }
func (b *Block) Tag() Tag      { return b.tag }
func (b *Block) Column() int   { return b.column }

// Cell is a comparable identity of a block's placement, ignoring its id.
type Cell struct {
	X   int
	Y   int
	Tag Tag
}

func (b *Block) Cell() Cell {
	return Cell{X: b.X, Y: b.Y, Tag: b.tag}
}

// RoundDown snaps a coordinate to the block grid, flooring toward negative
// infinity so negative coordinates tile with positive ones.
func RoundDown(coordinate float64, blockSize int) int {
	return int(math.Floor(coordinate/float64(blockSize))) * blockSize
}

// RoundUp returns the smallest grid multiple that is >= coordinate.
func RoundUp(coordinate float64, blockSize int) int {
	return int(math.Ceil(coordinate/float64(blockSize))) * blockSize
}
