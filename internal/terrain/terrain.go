package terrain

import (
	"errors"
	"fmt"

	"worldstream/internal/config"
	"worldstream/internal/world"
)

// ErrInvalidRange is returned when a generation range is inverted.
var ErrInvalidRange = errors.New("invalid generation range")

// Terrain derives ground height and ground columns from the noise field.
// Heights are recomputed on demand; nothing about a column is cached, so a
// column evicted and generated again is identical.
type Terrain struct {
	collection *world.Collection
	noise      Noise
	blockSize  int
	depth      int
	baseHeight float64
}

func NewTerrain(cfg *config.Config, collection *world.Collection) *Terrain {
	return NewTerrainWithNoise(cfg, collection, NewNoiseField(cfg.Noise, cfg.World.Seed))
}

// NewTerrainWithNoise builds a terrain over a caller supplied noise field.
func NewTerrainWithNoise(cfg *config.Config, collection *world.Collection, noise Noise) *Terrain {
	return &Terrain{
		collection: collection,
		noise:      noise,
		blockSize:  cfg.World.BlockSize,
		depth:      cfg.World.Depth,
		baseHeight: cfg.World.BaseHeight(),
	}
}

func (t *Terrain) BlockSize() int { return t.blockSize }

// GroundHeightAt returns the surface y at x; y grows downward.
func (t *Terrain) GroundHeightAt(x float64) float64 {
	if x == 0 {
		return t.baseHeight
	}
	return t.baseHeight + t.baseHeight*t.noise.Noise(x/float64(t.blockSize))
}

// CreateColumn builds the ground blocks of the column at x without adding
// them to the collection.
func (t *Terrain) CreateColumn(x int) []*world.Block {
	y := world.RoundDown(t.GroundHeightAt(float64(x)), t.blockSize)
	blocks := make([]*world.Block, 0, t.depth)
	for i := 0; i < t.depth; i++ {
		blocks = append(blocks, world.NewBlock(x, y, world.TagGround))
		y += t.blockSize
	}
	return blocks
}

// CreateInRange adds ground columns for every grid x from RoundDown(minX) to
// maxX inclusive.
func (t *Terrain) CreateInRange(minX, maxX int) error {
	if maxX < minX {
		return fmt.Errorf("terrain [%d, %d]: %w", minX, maxX, ErrInvalidRange)
	}
	for x := world.RoundDown(float64(minX), t.blockSize); x <= maxX; x += t.blockSize {
		for _, block := range t.CreateColumn(x) {
			if err := t.collection.Add(block, world.LayerGround); err != nil {
				return fmt.Errorf("add ground block (%d,%d): %w", block.X, block.Y, err)
			}
		}
	}
	return nil
}

// IsWithinTopTwoLayers reports whether block is in one of the two topmost
// ground rows of its column.
func (t *Terrain) IsWithinTopTwoLayers(block *world.Block) bool {
	return float64(block.Y)-2*float64(t.blockSize) < t.GroundHeightAt(float64(block.X))
}
