package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is the kinematic and visual state of a moving object.
type Body struct {
	Position mgl64.Vec2 // top-left corner, y grows downward
	Velocity mgl64.Vec2 // units per second
	Opacity  float64
	Angle    float64 // degrees
	Width    float64
	Height   float64
}

// Step integrates the position over delta.
func (b *Body) Step(delta time.Duration) {
	b.Position = b.Position.Add(b.Velocity.Mul(delta.Seconds()))
}

// Overlaps reports whether the body's box intersects the block cell.
func (b *Body) Overlaps(block *Block, blockSize int) bool {
	size := float64(blockSize)
	bx, by := float64(block.X), float64(block.Y)
	return b.Position.X() < bx+size &&
		b.Position.X()+b.Width > bx &&
		b.Position.Y() < by+size &&
		b.Position.Y()+b.Height > by
}

// TransitionMode selects how a transition behaves once it reaches its target.
type TransitionMode int

const (
	// TransitionOnce stops at the target value.
	TransitionOnce TransitionMode = iota
	// TransitionBackAndForth travels from -> to over one period, then back.
	TransitionBackAndForth
)

// Transition linearly interpolates a value over time.
type Transition struct {
	from    float64
	to      float64
	period  time.Duration
	mode    TransitionMode
	elapsed time.Duration
}

func NewTransition(from, to float64, period time.Duration, mode TransitionMode) *Transition {
	return &Transition{from: from, to: to, period: period, mode: mode}
}

// Advance moves the transition forward by delta and returns the new value.
func (t *Transition) Advance(delta time.Duration) float64 {
	if delta > 0 {
		t.elapsed += delta
	}
	return t.Value()
}

func (t *Transition) Value() float64 {
	if t.period <= 0 {
		return t.to
	}
	switch t.mode {
	case TransitionBackAndForth:
		leg := t.elapsed % (2 * t.period)
		if leg < t.period {
			return lerp(t.from, t.to, float64(leg)/float64(t.period))
		}
		return lerp(t.to, t.from, float64(leg-t.period)/float64(t.period))
	default:
		if t.elapsed >= t.period {
			return t.to
		}
		return lerp(t.from, t.to, float64(t.elapsed)/float64(t.period))
	}
}

// Done reports whether a one-shot transition has reached its target.
func (t *Transition) Done() bool {
	return t.mode == TransitionOnce && t.elapsed >= t.period
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
