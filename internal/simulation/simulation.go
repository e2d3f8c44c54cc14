package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
	"worldstream/internal/environment"
	"worldstream/internal/streamer"
	"worldstream/internal/terrain"
	"worldstream/internal/world"
)

const (
	minSpawnFraction = 0.25
	maxSpawnFraction = 0.75
	maxSpawnAttempts = 1000
)

// ErrNoSpawnPoint is returned when every sampled spawn column holds a tree.
var ErrNoSpawnPoint = errors.New("no tree free spawn column")

// Simulation owns the world and advances it one tick at a time.
type Simulation struct {
	cfg    *config.Config
	logger *log.Logger

	collection  *world.Collection
	terrain     *terrain.Terrain
	forest      *terrain.Forest
	streamer    *streamer.Streamer
	environment *environment.Environment
	walker      *Walker

	steps   uint64
	elapsed time.Duration
	landed  int
}

type Status struct {
	Steps       uint64
	Elapsed     time.Duration
	Window      streamer.Window
	Streamer    streamer.Stats
	Objects     int
	Ground      int
	Trunks      int
	Leaves      int
	LeafStates  map[world.LeafState]int
	Landings    int
	Viewpoint   mgl64.Vec2
	Environment environment.State
}

func New(cfg *config.Config, logger *log.Logger) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "worldstream ", log.LstdFlags|log.Lmicroseconds)
	}

	collection := world.NewCollection()
	collection.SetLayersCollide(world.LayerGround, world.LayerLeaf, true)
	collection.SetLayersCollide(world.LayerTrunk, world.LayerAvatar, true)
	collection.SetLayersCollide(world.LayerGround, world.LayerAvatar, true)

	tr := terrain.NewTerrain(cfg, collection)
	forest := terrain.NewForest(cfg, tr, collection)
	st, err := streamer.New(cfg, tr, forest, collection, logger)
	if err != nil {
		return nil, fmt.Errorf("create streamer: %w", err)
	}

	s := &Simulation{
		cfg:         cfg,
		logger:      logger,
		collection:  collection,
		terrain:     tr,
		forest:      forest,
		streamer:    st,
		environment: environment.New(environment.Config{DayLength: cfg.Simulation.DayLength.Duration()}),
	}

	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("initialise world: %w", err)
	}
	spawn, err := s.SpawnPoint()
	if err != nil {
		return nil, err
	}
	s.walker = NewWalker(spawn, cfg.Simulation.AvatarSpeed, cfg.Simulation.TurnAfter)
	logger.Printf("spawned at (%.0f, %.0f), %d first pass trees", spawn.X(), spawn.Y(), forest.FirstPassTrees())
	return s, nil
}

// SpawnPoint picks a grid column in the middle half of the first viewport
// that the first generation pass left free of trees. The same seed always
// yields the same point.
func (s *Simulation) SpawnPoint() (mgl64.Vec2, error) {
	width := s.cfg.World.ViewportWidth
	lower := int(minSpawnFraction * width)
	upper := int(maxSpawnFraction * width)
	if upper <= lower {
		return mgl64.Vec2{}, fmt.Errorf("viewport width %.0f too small for spawn search", width)
	}

	rng := rand.New(rand.NewSource(s.cfg.World.Seed))
	for attempt := 0; attempt < maxSpawnAttempts; attempt++ {
		x := world.RoundDown(float64(rng.Intn(upper-lower)+lower), s.cfg.World.BlockSize)
		if s.forest.IsTreeAt(x) {
			continue
		}
		return mgl64.Vec2{float64(x), s.terrain.GroundHeightAt(float64(x))}, nil
	}
	return mgl64.Vec2{}, fmt.Errorf("after %d attempts: %w", maxSpawnAttempts, ErrNoSpawnPoint)
}

// Step advances the world by delta: the walker moves, the window follows it,
// leaves update over a snapshot of the collection, falling leaves are tested
// against the ground and finally the day/night cycle advances.
func (s *Simulation) Step(delta time.Duration) error {
	if delta <= 0 {
		return nil
	}
	s.walker.Step(delta, s.terrain.GroundHeightAt)
	if err := s.streamer.Tick(delta, s.walker.Position.X()); err != nil {
		return fmt.Errorf("stream window: %w", err)
	}

	leaves := s.collection.Leaves()
	for _, leaf := range leaves {
		leaf.Update(delta)
	}
	if s.collection.LayersCollide(world.LayerGround, world.LayerLeaf) {
		for _, leaf := range leaves {
			if s.resolveLanding(leaf) {
				s.landed++
			}
		}
	}

	s.environment.Step(delta)
	s.steps++
	s.elapsed += delta
	return nil
}

// resolveLanding lands leaf on the first ground block it overlaps. Only the
// columns covered by the leaf's box are inspected.
func (s *Simulation) resolveLanding(leaf *world.Leaf) bool {
	if leaf.State() != world.LeafFalling || leaf.Landed() {
		return false
	}
	body := leaf.Body()
	blockSize := s.cfg.World.BlockSize
	first := world.RoundDown(body.Position.X(), blockSize)
	for column := first; float64(column) < body.Position.X()+body.Width; column += blockSize {
		for _, object := range s.collection.ColumnObjects(column) {
			block, ok := object.(*world.Block)
			if !ok {
				continue
			}
			if !leaf.ShouldCollideWith(block) || !body.Overlaps(block, blockSize) {
				continue
			}
			leaf.Land()
			return true
		}
	}
	return false
}

// Run steps the simulation from a ticker until ctx is cancelled or the
// configured duration elapses.
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Simulation.TickRate.Duration())
	defer ticker.Stop()

	var statusC <-chan time.Time
	if interval := s.cfg.Simulation.StatusInterval.Duration(); interval > 0 {
		statusTicker := time.NewTicker(interval)
		defer statusTicker.Stop()
		statusC = statusTicker.C
	}

	var deadline <-chan time.Time
	if d := s.cfg.Simulation.Duration.Duration(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logStatus()
			return ctx.Err()
		case <-deadline:
			s.logStatus()
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if err := s.Step(delta); err != nil {
				return err
			}
		case <-statusC:
			s.logStatus()
		}
	}
}

func (s *Simulation) Status() Status {
	states := make(map[world.LeafState]int)
	leaves := s.collection.Leaves()
	for _, leaf := range leaves {
		states[leaf.State()]++
	}
	return Status{
		Steps:       s.steps,
		Elapsed:     s.elapsed,
		Window:      s.streamer.Window(),
		Streamer:    s.streamer.Stats(),
		Objects:     s.collection.Len(),
		Ground:      s.collection.Count(world.LayerGround),
		Trunks:      s.collection.Count(world.LayerTrunk),
		Leaves:      len(leaves),
		LeafStates:  states,
		Landings:    s.landed,
		Viewpoint:   s.walker.Position,
		Environment: s.environment.CurrentState(),
	}
}

func (s *Simulation) logStatus() {
	st := s.Status()
	s.logger.Printf("t=%s x=%.0f window=[%.0f, %.0f] objects=%d ground=%d trunks=%d leaves=%d (dormant=%d attached=%d falling=%d grounded=%d) landings=%d time=%.1fh %s",
		st.Elapsed.Round(time.Millisecond), st.Viewpoint.X(), st.Window.StartX, st.Window.EndX,
		st.Objects, st.Ground, st.Trunks, st.Leaves,
		st.LeafStates[world.LeafDormant], st.LeafStates[world.LeafAttached],
		st.LeafStates[world.LeafFalling], st.LeafStates[world.LeafGrounded],
		st.Landings, st.Environment.TimeOfDay, st.Environment.Phase)
}

func (s *Simulation) Collection() *world.Collection { return s.collection }
func (s *Simulation) Terrain() *terrain.Terrain     { return s.terrain }
func (s *Simulation) Forest() *terrain.Forest       { return s.forest }
func (s *Simulation) Streamer() *streamer.Streamer  { return s.streamer }
func (s *Simulation) Walker() *Walker               { return s.walker }

// SavePreview renders the current window to a PNG at path.
func (s *Simulation) SavePreview(path string) error {
	w := s.streamer.Window()
	minX := world.RoundUp(w.StartX, s.cfg.World.BlockSize)
	maxX := world.RoundDown(w.EndX, s.cfg.World.BlockSize)
	return world.SaveWindowPreview(s.collection, minX, maxX, s.cfg.World.BlockSize, path)
}
