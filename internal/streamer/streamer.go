package streamer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"worldstream/internal/config"
	"worldstream/internal/terrain"
	"worldstream/internal/world"
)

// TerrainGenerator populates ground columns for a range of x.
type TerrainGenerator interface {
	CreateInRange(minX, maxX int) error
}

// TreePlanter populates trees for a range of x.
type TreePlanter interface {
	PlaceInRange(minX, maxX int) error
}

// Window is the span of x for which content is materialized. Every grid
// column c with StartX <= c <= EndX exists in the collection.
type Window struct {
	StartX float64
	EndX   float64
}

func (w Window) Width() float64 { return w.EndX - w.StartX }

type Stats struct {
	Ticks           uint64
	Elapsed         time.Duration
	ExpansionsLeft  int
	ExpansionsRight int
	Created         int
	Evicted         int
}

// Streamer keeps a finite window of the infinite world around a moving
// viewpoint, creating columns ahead of it and evicting columns behind it.
type Streamer struct {
	terrain    TerrainGenerator
	trees      TreePlanter
	collection *world.Collection
	logger     *log.Logger

	blockSize     int
	viewportWidth float64
	margin        float64
	delta         float64
	bufferLength  float64

	mu          sync.RWMutex
	window      Window
	initialized bool
	stats       Stats
}

func New(cfg *config.Config, terrain TerrainGenerator, trees TreePlanter, collection *world.Collection, logger *log.Logger) (*Streamer, error) {
	if cfg == nil {
		return nil, errors.New("streamer requires config")
	}
	if terrain == nil || collection == nil {
		return nil, errors.New("streamer requires terrain and collection")
	}
	bufferLength := cfg.BufferLength()
	if cfg.Streamer.Delta < float64(cfg.World.BlockSize) {
		return nil, fmt.Errorf("delta %.1f smaller than block size %d", cfg.Streamer.Delta, cfg.World.BlockSize)
	}
	if cfg.Streamer.Delta >= bufferLength {
		return nil, fmt.Errorf("delta %.1f must be below buffer length %.1f", cfg.Streamer.Delta, bufferLength)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "streamer ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Streamer{
		terrain:       terrain,
		trees:         trees,
		collection:    collection,
		logger:        logger,
		blockSize:     cfg.World.BlockSize,
		viewportWidth: cfg.World.ViewportWidth,
		margin:        cfg.Streamer.Margin,
		delta:         cfg.Streamer.Delta,
		bufferLength:  bufferLength,
	}, nil
}

// Init materializes the first window [-margin, viewportWidth+margin].
func (s *Streamer) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errors.New("streamer already initialized")
	}
	window := Window{StartX: -s.margin, EndX: s.viewportWidth + s.margin}
	minX := world.RoundUp(window.StartX, s.blockSize)
	maxX := world.RoundDown(window.EndX, s.blockSize)
	if err := s.populate(minX, maxX); err != nil {
		return fmt.Errorf("initial window: %w", err)
	}
	s.window = window
	s.initialized = true
	s.logger.Printf("initial window [%.0f, %.0f], %d objects", window.StartX, window.EndX, s.collection.Len())
	return nil
}

// Tick expands the window towards the viewpoint when it comes within the
// buffer length of either edge. Each side expands at most once per call.
func (s *Streamer) Tick(delta time.Duration, viewpointX float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("streamer not initialized")
	}
	s.stats.Ticks++
	s.stats.Elapsed += delta

	if viewpointX-s.window.StartX < s.bufferLength {
		if err := s.expandLeft(); err != nil {
			return err
		}
	}
	if s.window.EndX-viewpointX < s.bufferLength {
		if err := s.expandRight(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Streamer) expandLeft() error {
	retainUntil := s.window.EndX - s.delta
	evicted := s.collection.EvictColumns(func(column int) bool {
		return float64(column) > retainUntil
	})

	minX := world.RoundUp(s.window.StartX-s.delta, s.blockSize)
	maxX := world.RoundUp(s.window.StartX, s.blockSize) - s.blockSize
	before := s.collection.Len()
	if err := s.populate(minX, maxX); err != nil {
		return fmt.Errorf("expand left: %w", err)
	}

	s.window.StartX -= s.delta
	s.window.EndX -= s.delta
	s.stats.ExpansionsLeft++
	s.stats.Evicted += evicted
	s.stats.Created += s.collection.Len() - before
	s.logger.Printf("expanded left to [%.0f, %.0f], evicted %d objects", s.window.StartX, s.window.EndX, evicted)
	return nil
}

func (s *Streamer) expandRight() error {
	retainFrom := s.window.StartX + s.delta
	evicted := s.collection.EvictColumns(func(column int) bool {
		return float64(column) < retainFrom
	})

	minX := world.RoundDown(s.window.EndX, s.blockSize) + s.blockSize
	maxX := world.RoundDown(s.window.EndX+s.delta, s.blockSize)
	before := s.collection.Len()
	if err := s.populate(minX, maxX); err != nil {
		return fmt.Errorf("expand right: %w", err)
	}

	s.window.StartX += s.delta
	s.window.EndX += s.delta
	s.stats.ExpansionsRight++
	s.stats.Evicted += evicted
	s.stats.Created += s.collection.Len() - before
	s.logger.Printf("expanded right to [%.0f, %.0f], evicted %d objects", s.window.StartX, s.window.EndX, evicted)
	return nil
}

// populate creates ground and then trees for the grid columns in
// [minX, maxX]. Window bookkeeping never yields an inverted range.
func (s *Streamer) populate(minX, maxX int) error {
	if maxX < minX {
		return fmt.Errorf("populate [%d, %d]: %w", minX, maxX, terrain.ErrInvalidRange)
	}
	if err := s.terrain.CreateInRange(minX, maxX); err != nil {
		return err
	}
	if s.trees == nil {
		return nil
	}
	return s.trees.PlaceInRange(minX, maxX)
}

func (s *Streamer) Window() Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

func (s *Streamer) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// BufferLength is the distance from an edge at which the window expands.
func (s *Streamer) BufferLength() float64 {
	return s.bufferLength
}
