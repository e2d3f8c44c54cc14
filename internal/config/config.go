package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON- and YAML-friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", value.Kind)
	}
	switch value.Tag {
	case "!!int":
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	case "!!float":
		var f float64
		if err := value.Decode(&f); err != nil {
			return fmt.Errorf("duration: decode float: %w", err)
		}
		*d = Duration(time.Duration(f))
		return nil
	case "!!null":
		*d = 0
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the world generator and the
// headless runner that drives it.
type Config struct {
	World      WorldConfig      `json:"world" yaml:"world"`
	Noise      NoiseConfig      `json:"noise" yaml:"noise"`
	Streamer   StreamerConfig   `json:"streamer" yaml:"streamer"`
	Trees      TreeConfig       `json:"trees" yaml:"trees"`
	Leaves     LeafConfig       `json:"leaves" yaml:"leaves"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
}

type WorldConfig struct {
	Seed           int64   `json:"seed" yaml:"seed"`
	BlockSize      int     `json:"blockSize" yaml:"blockSize"`
	ViewportWidth  float64 `json:"viewportWidth" yaml:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight" yaml:"viewportHeight"`
	HeightFactor   float64 `json:"heightFactor" yaml:"heightFactor"` // ground height at x=0 as a fraction of viewport height
	Depth          int     `json:"depth" yaml:"depth"`               // ground blocks per column
}

// BaseHeight is the ground height at x=0.
func (w WorldConfig) BaseHeight() float64 {
	return w.HeightFactor * w.ViewportHeight
}

type NoiseConfig struct {
	Alpha     float64 `json:"alpha" yaml:"alpha"`         // octave weight divisor
	Beta      float64 `json:"beta" yaml:"beta"`           // octave frequency multiplier
	Octaves   int     `json:"octaves" yaml:"octaves"`     // number of octaves
	Frequency float64 `json:"frequency" yaml:"frequency"` // lattice cells per column
}

type StreamerConfig struct {
	Margin float64 `json:"margin" yaml:"margin"` // world kept beyond each viewport edge
	Delta  float64 `json:"delta" yaml:"delta"`   // shift applied per expansion
}

type TreeConfig struct {
	PlantThreshold   float64 `json:"plantThreshold" yaml:"plantThreshold"`
	LeafThreshold    float64 `json:"leafThreshold" yaml:"leafThreshold"`
	MinTrunkBlocks   int     `json:"minTrunkBlocks" yaml:"minTrunkBlocks"`
	MaxTrunkBlocks   int     `json:"maxTrunkBlocks" yaml:"maxTrunkBlocks"`
	MinLeavesPerSide int     `json:"minLeavesPerSide" yaml:"minLeavesPerSide"`
	MaxLeavesPerSide int     `json:"maxLeavesPerSide" yaml:"maxLeavesPerSide"`
}

type LeafConfig struct {
	MaxLifeTime   Duration `json:"maxLifeTime" yaml:"maxLifeTime"`
	MaxDeathTime  Duration `json:"maxDeathTime" yaml:"maxDeathTime"`
	MaxStartDelay Duration `json:"maxStartDelay" yaml:"maxStartDelay"`
	FadeOut       Duration `json:"fadeOut" yaml:"fadeOut"`
	SwayCycle     Duration `json:"swayCycle" yaml:"swayCycle"`   // rotation/width period while attached
	SwingCycle    Duration `json:"swingCycle" yaml:"swingCycle"` // horizontal swing period while falling
	FallVelocityX float64  `json:"fallVelocityX" yaml:"fallVelocityX"`
	FallVelocityY float64  `json:"fallVelocityY" yaml:"fallVelocityY"`
	SwingAngle    float64  `json:"swingAngle" yaml:"swingAngle"`
	WidthFactor   float64  `json:"widthFactor" yaml:"widthFactor"`
}

type SimulationConfig struct {
	TickRate       Duration `json:"tickRate" yaml:"tickRate"`
	AvatarSpeed    float64  `json:"avatarSpeed" yaml:"avatarSpeed"` // world units per second
	TurnAfter      float64  `json:"turnAfter" yaml:"turnAfter"`     // distance before reversing, 0 walks forever
	Duration       Duration `json:"duration" yaml:"duration"`       // 0 runs until interrupted
	StatusInterval Duration `json:"statusInterval" yaml:"statusInterval"`
	DayLength      Duration `json:"dayLength" yaml:"dayLength"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty
// path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:           32,
			BlockSize:      30,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			HeightFactor:   2.0 / 3.0,
			Depth:          20,
		},
		Noise: NoiseConfig{
			Alpha:     2,
			Beta:      2,
			Octaves:   3,
			Frequency: 0.13,
		},
		Streamer: StreamerConfig{
			Margin: 400,
			Delta:  200,
		},
		Trees: TreeConfig{
			PlantThreshold:   0.85,
			LeafThreshold:    0.3,
			MinTrunkBlocks:   5,
			MaxTrunkBlocks:   15,
			MinLeavesPerSide: 2,
			MaxLeavesPerSide: 5,
		},
		Leaves: LeafConfig{
			MaxLifeTime:   Duration(800 * time.Second),
			MaxDeathTime:  Duration(50 * time.Second),
			MaxStartDelay: Duration(3 * time.Second),
			FadeOut:       Duration(20 * time.Second),
			SwayCycle:     Duration(time.Second),
			SwingCycle:    Duration(3 * time.Second),
			FallVelocityX: 10,
			FallVelocityY: 50,
			SwingAngle:    5,
			WidthFactor:   1.2,
		},
		Simulation: SimulationConfig{
			TickRate:       Duration(16 * time.Millisecond),
			AvatarSpeed:    300,
			TurnAfter:      6000,
			StatusInterval: Duration(5 * time.Second),
			DayLength:      Duration(30 * time.Second),
		},
	}
}

// BufferLength is the distance from the viewpoint to a window edge below
// which the streamer expands towards that edge.
func (c *Config) BufferLength() float64 {
	return (c.World.ViewportWidth + c.Streamer.Margin) / 2
}

func (c *Config) Validate() error {
	if c.World.BlockSize <= 0 {
		return errors.New("world.blockSize must be positive")
	}
	if c.World.ViewportWidth <= 0 || c.World.ViewportHeight <= 0 {
		return errors.New("world viewport dimensions must be positive")
	}
	if c.World.HeightFactor <= 0 || c.World.HeightFactor >= 1 {
		return errors.New("world.heightFactor must be in (0, 1)")
	}
	if c.World.Depth <= 0 {
		return errors.New("world.depth must be positive")
	}
	if c.Noise.Alpha <= 0 || c.Noise.Beta <= 0 {
		return errors.New("noise.alpha and noise.beta must be positive")
	}
	if c.Noise.Octaves <= 0 {
		return errors.New("noise.octaves must be positive")
	}
	if c.Noise.Frequency <= 0 {
		return errors.New("noise.frequency must be positive")
	}
	if c.Streamer.Margin < 0 {
		return errors.New("streamer.margin cannot be negative")
	}
	if c.Streamer.Delta < float64(c.World.BlockSize) {
		return errors.New("streamer.delta must be >= world.blockSize")
	}
	if c.Streamer.Delta >= c.BufferLength() {
		return fmt.Errorf("streamer.delta must be < buffer length %.1f", c.BufferLength())
	}
	if c.Trees.PlantThreshold < 0 || c.Trees.PlantThreshold > 1 {
		return errors.New("trees.plantThreshold must be in [0, 1]")
	}
	if c.Trees.LeafThreshold < 0 || c.Trees.LeafThreshold > 1 {
		return errors.New("trees.leafThreshold must be in [0, 1]")
	}
	if c.Trees.MinTrunkBlocks <= 0 || c.Trees.MaxTrunkBlocks <= c.Trees.MinTrunkBlocks {
		return errors.New("trees trunk bounds must satisfy 0 < min < max")
	}
	if c.Trees.MinLeavesPerSide < 0 || c.Trees.MaxLeavesPerSide <= c.Trees.MinLeavesPerSide {
		return errors.New("trees crown bounds must satisfy 0 <= min < max")
	}
	if c.Leaves.MaxLifeTime < 0 || c.Leaves.MaxDeathTime < 0 || c.Leaves.MaxStartDelay < 0 {
		return errors.New("leaves schedule maxima cannot be negative")
	}
	if c.Leaves.FadeOut <= 0 || c.Leaves.SwayCycle <= 0 || c.Leaves.SwingCycle <= 0 {
		return errors.New("leaves fadeOut and cycles must be positive")
	}
	if c.Leaves.WidthFactor <= 0 {
		return errors.New("leaves.widthFactor must be positive")
	}
	if c.Simulation.TickRate <= 0 {
		return errors.New("simulation.tickRate must be positive")
	}
	if c.Simulation.AvatarSpeed < 0 || c.Simulation.TurnAfter < 0 {
		return errors.New("simulation avatar speed and turn distance cannot be negative")
	}
	if c.Simulation.DayLength <= 0 {
		return errors.New("simulation.dayLength must be positive")
	}
	return nil
}
