package terrain

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
	"worldstream/internal/world"
)

// maxPlantLookBack bounds the walk over neighbouring columns when deciding
// whether a column plants.
const maxPlantLookBack = 256

// Forest places trees. Every decision is keyed on cell coordinates and the
// world seed only, so regenerating a range reproduces the same trees.
type Forest struct {
	cfg        config.TreeConfig
	leaves     config.LeafConfig
	motion     world.LeafMotion
	terrain    *Terrain
	collection *world.Collection
	seed       int64
	blockSize  int

	firstPass bool
	planted   map[int]struct{}
}

func NewForest(cfg *config.Config, terrain *Terrain, collection *world.Collection) *Forest {
	return &Forest{
		cfg:        cfg.Trees,
		leaves:     cfg.Leaves,
		motion:     LeafMotion(cfg),
		terrain:    terrain,
		collection: collection,
		seed:       cfg.World.Seed,
		blockSize:  cfg.World.BlockSize,
		firstPass:  true,
		planted:    make(map[int]struct{}),
	}
}

// LeafMotion converts the leaf configuration into world units.
func LeafMotion(cfg *config.Config) world.LeafMotion {
	return world.LeafMotion{
		Size:          float64(cfg.World.BlockSize),
		FadeOut:       cfg.Leaves.FadeOut.Duration(),
		SwayCycle:     cfg.Leaves.SwayCycle.Duration(),
		SwingCycle:    cfg.Leaves.SwingCycle.Duration(),
		FallVelocityX: cfg.Leaves.FallVelocityX,
		FallVelocityY: cfg.Leaves.FallVelocityY,
		SwingAngle:    cfg.Leaves.SwingAngle,
		WidthFactor:   cfg.Leaves.WidthFactor,
	}
}

// PlaceInRange plants trees on every grid column from RoundDown(minX) to maxX.
func (f *Forest) PlaceInRange(minX, maxX int) error {
	if maxX < minX {
		return fmt.Errorf("forest [%d, %d]: %w", minX, maxX, ErrInvalidRange)
	}
	for x := world.RoundDown(float64(minX), f.blockSize); x <= maxX; x += f.blockSize {
		if !f.ShouldPlant(x) {
			continue
		}
		if err := f.plantTree(x); err != nil {
			return err
		}
		if f.firstPass {
			f.planted[x] = struct{}{}
		}
	}
	f.firstPass = false
	return nil
}

// IsTreeAt reports whether the first generation pass planted a trunk at x.
func (f *Forest) IsTreeAt(x int) bool {
	_, ok := f.planted[x]
	return ok
}

// FirstPassTrees is the number of trunks recorded by the first pass.
func (f *Forest) FirstPassTrees() int {
	return len(f.planted)
}

// ShouldPlant decides whether column x carries a trunk. A column whose coin
// clears the threshold plants unless the column to its left planted, which
// holds exactly when the run of passing columns to its left is odd. Runs
// longer than the look-back plant on even grid columns only.
func (f *Forest) ShouldPlant(x int) bool {
	if !f.coin(x) {
		return false
	}
	run := 0
	for left := x - f.blockSize; run < maxPlantLookBack && f.coin(left); left -= f.blockSize {
		run++
	}
	if run == maxPlantLookBack {
		return (x/f.blockSize)%2 == 0
	}
	return run%2 == 0
}

func (f *Forest) coin(x int) bool {
	return newCellRNG(x, 0, f.seed, saltPlant).Float64() > f.cfg.PlantThreshold
}

func (f *Forest) plantTree(x int) error {
	top, err := f.plantTrunk(x)
	if err != nil {
		return err
	}
	return f.growCrown(x, top)
}

// TrunkHeight returns the number of trunk blocks at x.
func (f *Forest) TrunkHeight(x int) int {
	span := f.cfg.MaxTrunkBlocks - f.cfg.MinTrunkBlocks
	return f.cfg.MinTrunkBlocks + newCellRNG(x, 0, f.seed, saltTrunk).Intn(span)
}

// plantTrunk stacks trunk blocks upward from the block above the ground and
// returns the y of the topmost one.
func (f *Forest) plantTrunk(x int) (int, error) {
	y := world.RoundDown(f.terrain.GroundHeightAt(float64(x)), f.blockSize) - f.blockSize
	blocks := f.TrunkHeight(x)
	for i := 0; i < blocks; i++ {
		block := world.NewAnchoredBlock(x, y, x, world.TagTrunk)
		if err := f.collection.Add(block, world.LayerTrunk); err != nil {
			return 0, fmt.Errorf("add trunk block (%d,%d): %w", x, y, err)
		}
		if i < blocks-1 {
			y -= f.blockSize
		}
	}
	return y, nil
}

// growCrown fills the square around the trunk top with leaves. Cells that do
// not lie above the ground are skipped.
func (f *Forest) growCrown(x, top int) error {
	span := f.cfg.MaxLeavesPerSide - f.cfg.MinLeavesPerSide
	radius := f.cfg.MinLeavesPerSide + newCellRNG(x, top, f.seed, saltCrown).Intn(span)

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cellX := x + dx*f.blockSize
			cellY := top + dy*f.blockSize
			if newCellRNG(cellX, cellY, f.seed, saltLeaf).Float64() <= f.cfg.LeafThreshold {
				continue
			}
			if f.terrain.GroundHeightAt(float64(cellX)) <= float64(cellY+f.blockSize) {
				continue
			}
			origin := mgl64.Vec2{float64(cellX), float64(cellY)}
			leaf := world.NewLeaf(origin, x, f.Schedule(cellX, cellY), f.motion, f.terrain)
			if err := f.collection.Add(leaf, world.LayerLeaf); err != nil {
				return fmt.Errorf("add leaf (%d,%d): %w", cellX, cellY, err)
			}
		}
	}
	return nil
}

// Schedule draws the leaf timings for the cell at (x, y). The same cell
// always gets the same schedule.
func (f *Forest) Schedule(x, y int) world.LeafSchedule {
	rng := newCellRNG(x, y, f.seed, saltSchedule)
	scale := func(limit config.Duration) time.Duration {
		return time.Duration(rng.Float64() * float64(limit.Duration()))
	}
	life := scale(f.leaves.MaxLifeTime)
	death := scale(f.leaves.MaxDeathTime)
	start := scale(f.leaves.MaxStartDelay)
	return world.LeafSchedule{StartDelay: start, LifeTime: life, DeathTime: death}
}
