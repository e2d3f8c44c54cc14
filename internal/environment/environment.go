package environment

import (
	"math"
	"sync"
	"time"
)

type Phase string

const (
	PhaseDawn  Phase = "dawn"
	PhaseDay   Phase = "day"
	PhaseDusk  Phase = "dusk"
	PhaseNight Phase = "night"
)

// MidnightOpacity is the darkest the night overlay gets.
const MidnightOpacity = 0.5

type Config struct {
	DayLength time.Duration `json:"dayLength"`
}

type State struct {
	TimeOfDay float64 // hours in [0, 24)
	Phase     Phase
	Lighting  LightingState
}

type LightingState struct {
	Ambient      float64
	SunAngle     float64 // degrees, 0 at midday
	NightOpacity float64
}

// Environment runs the day/night cycle. The cycle starts at midday; the
// night overlay peaks at midnight and the sun completes one full turn per
// day.
type Environment struct {
	mu          sync.Mutex
	cfg         Config
	state       State
	dayProgress float64
	days        int
}

func New(cfg Config) *Environment {
	cfg = applyDefaults(cfg)
	env := &Environment{cfg: cfg}
	env.update()
	return env
}

func applyDefaults(cfg Config) Config {
	if cfg.DayLength <= 0 {
		cfg.DayLength = 30 * time.Second
	}
	return cfg
}

func (e *Environment) Step(delta time.Duration) State {
	if delta <= 0 {
		return e.CurrentState()
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dayProgress += float64(delta) / float64(e.cfg.DayLength)
	for e.dayProgress >= 1 {
		e.dayProgress -= 1
		e.days++
	}
	e.update()
	return e.state
}

func (e *Environment) update() {
	hours := math.Mod(12+e.dayProgress*24, 24)
	phase := determinePhase(hours)
	e.state.TimeOfDay = hours
	e.state.Phase = phase
	e.state.Lighting = computeLighting(e.dayProgress)
}

func (e *Environment) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Days counts completed cycles.
func (e *Environment) Days() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.days
}

func determinePhase(hour float64) Phase {
	switch {
	case hour >= 5 && hour < 7:
		return PhaseDawn
	case hour >= 7 && hour < 18:
		return PhaseDay
	case hour >= 18 && hour < 21:
		return PhaseDusk
	default:
		return PhaseNight
	}
}

// computeLighting eases the overlay in over the first half of the day and out
// over the second.
func computeLighting(progress float64) LightingState {
	half := progress * 2
	if half > 1 {
		half = 2 - half
	}
	opacity := MidnightOpacity * half * half * half
	return LightingState{
		Ambient:      clamp01(1 - opacity),
		SunAngle:     progress * 360,
		NightOpacity: clamp01(opacity),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
