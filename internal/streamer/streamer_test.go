package streamer

import (
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"worldstream/internal/config"
	"worldstream/internal/terrain"
	"worldstream/internal/world"
)

const frame = 16 * time.Millisecond

var discard = log.New(io.Discard, "", 0)

func scenarioConfig() *config.Config {
	cfg := config.Default()
	cfg.World.ViewportWidth = 300
	cfg.World.ViewportHeight = 300
	cfg.Streamer.Margin = 400
	cfg.Streamer.Delta = 200
	return cfg
}

func newScenario(t *testing.T, cfg *config.Config, withTrees bool) (*Streamer, *terrain.Forest, *world.Collection) {
	t.Helper()
	c := world.NewCollection()
	tr := terrain.NewTerrain(cfg, c)
	var forest *terrain.Forest
	var planter TreePlanter
	if withTrees {
		forest = terrain.NewForest(cfg, tr, c)
		planter = forest
	}
	s, err := New(cfg, tr, planter, c, discard)
	if err != nil {
		t.Fatalf("new streamer: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s, forest, c
}

// checkMaterialized asserts every grid column in the window holds exactly one
// ground column and nothing is anchored outside the window.
func checkMaterialized(t *testing.T, s *Streamer, c *world.Collection, depth, blockSize int) {
	t.Helper()
	w := s.Window()
	perColumn := map[int]int{}
	for _, b := range c.Blocks(world.LayerGround) {
		perColumn[b.X]++
	}
	for x := world.RoundUp(w.StartX, blockSize); float64(x) <= w.EndX; x += blockSize {
		if perColumn[x] != depth {
			t.Fatalf("window [%.0f, %.0f]: column %d has %d ground blocks, want %d", w.StartX, w.EndX, x, perColumn[x], depth)
		}
		delete(perColumn, x)
	}
	if len(perColumn) != 0 {
		t.Fatalf("window [%.0f, %.0f]: unexpected ground columns %v", w.StartX, w.EndX, perColumn)
	}
	for _, column := range c.Columns() {
		if float64(column) < w.StartX || float64(column) > w.EndX {
			t.Fatalf("window [%.0f, %.0f]: object anchored at %d", w.StartX, w.EndX, column)
		}
	}
}

func TestNewRejectsThrashingDelta(t *testing.T) {
	c := world.NewCollection()
	cfg := scenarioConfig()
	tr := terrain.NewTerrain(cfg, c)

	cfg.Streamer.Delta = cfg.BufferLength()
	if _, err := New(cfg, tr, nil, c, discard); err == nil {
		t.Fatalf("expected error when delta equals buffer length")
	}
	cfg.Streamer.Delta = float64(cfg.World.BlockSize - 1)
	if _, err := New(cfg, tr, nil, c, discard); err == nil {
		t.Fatalf("expected error when delta is below block size")
	}
}

func TestTickRequiresInit(t *testing.T) {
	c := world.NewCollection()
	cfg := scenarioConfig()
	s, err := New(cfg, terrain.NewTerrain(cfg, c), nil, c, discard)
	if err != nil {
		t.Fatalf("new streamer: %v", err)
	}
	if err := s.Tick(frame, 0); err == nil {
		t.Fatalf("expected error before init")
	}
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Init(); err == nil {
		t.Fatalf("second init should fail")
	}
}

type recordingGenerator struct {
	calls [][2]int
}

func (g *recordingGenerator) CreateInRange(minX, maxX int) error {
	g.calls = append(g.calls, [2]int{minX, maxX})
	return nil
}

func TestPopulateRejectsInvertedRange(t *testing.T) {
	cfg := scenarioConfig()
	gen := &recordingGenerator{}
	s, err := New(cfg, gen, nil, world.NewCollection(), discard)
	if err != nil {
		t.Fatalf("new streamer: %v", err)
	}
	if err := s.populate(60, 30); !errors.Is(err, terrain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator called for inverted range: %v", gen.calls)
	}
	if err := s.populate(30, 30); err != nil {
		t.Fatalf("single column: %v", err)
	}
	if len(gen.calls) != 1 || gen.calls[0] != [2]int{30, 30} {
		t.Fatalf("unexpected generator calls %v", gen.calls)
	}
}

func TestInitialWindow(t *testing.T) {
	cfg := scenarioConfig()
	s, _, c := newScenario(t, cfg, false)
	w := s.Window()
	if w.StartX != -400 || w.EndX != 700 {
		t.Fatalf("initial window %+v", w)
	}
	if math.Abs(s.BufferLength()-350) > 1e-9 {
		t.Fatalf("buffer length %v", s.BufferLength())
	}
	checkMaterialized(t, s, c, cfg.World.Depth, cfg.World.BlockSize)
}

func TestExpandRightScenario(t *testing.T) {
	cfg := scenarioConfig()
	s, _, c := newScenario(t, cfg, false)

	before := map[int]bool{}
	for _, x := range c.Columns() {
		before[x] = true
	}

	if err := s.Tick(frame, 400); err != nil {
		t.Fatalf("tick: %v", err)
	}
	w := s.Window()
	if w.StartX != -200 || w.EndX != 900 {
		t.Fatalf("window after expansion %+v, want [-200, 900]", w)
	}
	stats := s.Stats()
	if stats.ExpansionsRight != 1 || stats.ExpansionsLeft != 0 {
		t.Fatalf("unexpected expansions %+v", stats)
	}

	var added []int
	for _, x := range c.Columns() {
		if !before[x] {
			added = append(added, x)
		}
		if x < -200 {
			t.Fatalf("ground column %d should have been evicted", x)
		}
	}
	want := []int{720, 750, 780, 810, 840, 870, 900}
	if len(added) != len(want) {
		t.Fatalf("new columns %v, want %v", added, want)
	}
	for i := range want {
		if added[i] != want[i] {
			t.Fatalf("new columns %v, want %v", added, want)
		}
	}
	checkMaterialized(t, s, c, cfg.World.Depth, cfg.World.BlockSize)

	if stats.Evicted != 7*cfg.World.Depth || stats.Created != 7*cfg.World.Depth {
		t.Fatalf("stats %+v", stats)
	}
}

func TestNoExpansionInsideBuffer(t *testing.T) {
	cfg := scenarioConfig()
	s, _, c := newScenario(t, cfg, false)
	n := c.Len()
	if err := s.Tick(frame, 150); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if w := s.Window(); w.StartX != -400 || w.EndX != 700 {
		t.Fatalf("window moved: %+v", w)
	}
	if c.Len() != n {
		t.Fatalf("collection changed without expansion")
	}
}

func TestWalkingKeepsWindowConsistent(t *testing.T) {
	cfg := scenarioConfig()
	s, _, c := newScenario(t, cfg, true)

	previous := s.Window()
	for x := 150.0; x <= 4000; x += 10 {
		if err := s.Tick(frame, x); err != nil {
			t.Fatalf("tick at %v: %v", x, err)
		}
		w := s.Window()
		if w.StartX < previous.StartX || w.EndX < previous.EndX {
			t.Fatalf("window moved backwards walking right: %+v -> %+v", previous, w)
		}
		if w.Width() != previous.Width() {
			t.Fatalf("window width changed: %v -> %v", previous.Width(), w.Width())
		}
		if x-w.StartX < s.BufferLength()-cfg.Streamer.Delta || w.EndX-x < s.BufferLength()-cfg.Streamer.Delta {
			t.Fatalf("viewpoint %v escaped window %+v", x, w)
		}
		previous = w
	}
	checkMaterialized(t, s, c, cfg.World.Depth, cfg.World.BlockSize)

	for x := 4000.0; x >= -4000; x -= 10 {
		if err := s.Tick(frame, x); err != nil {
			t.Fatalf("tick at %v: %v", x, err)
		}
		w := s.Window()
		if w.StartX > previous.StartX || w.EndX > previous.EndX {
			t.Fatalf("window moved backwards walking left: %+v -> %+v", previous, w)
		}
		previous = w
	}
	checkMaterialized(t, s, c, cfg.World.Depth, cfg.World.BlockSize)

	stats := s.Stats()
	if stats.ExpansionsLeft == 0 || stats.ExpansionsRight == 0 {
		t.Fatalf("expected expansions both ways: %+v", stats)
	}
}

func TestRevisitedRangeRegeneratesIdentically(t *testing.T) {
	cfg := scenarioConfig()
	s, forest, c := newScenario(t, cfg, true)
	initial := trunkCells(c, 0, 600)

	for x := 150.0; x <= 3000; x += 10 {
		if err := s.Tick(frame, x); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if len(trunkCells(c, 0, 600)) != 0 {
		t.Fatalf("range [0, 600] should have been evicted")
	}
	for x := 3000.0; x >= 150; x -= 10 {
		if err := s.Tick(frame, x); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	again := trunkCells(c, 0, 600)
	if len(again) != len(initial) {
		t.Fatalf("trunk cells %d, want %d", len(again), len(initial))
	}
	for cell := range initial {
		if !again[cell] {
			t.Fatalf("trunk cell %+v missing after regeneration", cell)
		}
		if !forest.IsTreeAt(cell.X) {
			t.Fatalf("first pass tree at %d forgotten", cell.X)
		}
	}
}

func trunkCells(c *world.Collection, minX, maxX int) map[world.Cell]bool {
	out := map[world.Cell]bool{}
	for _, b := range c.Blocks(world.LayerTrunk) {
		if b.X >= minX && b.X <= maxX {
			out[b.Cell()] = true
		}
	}
	return out
}
