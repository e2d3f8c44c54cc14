package simulation

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Walker is a scripted avatar that walks along the ground and turns around
// after covering a fixed distance. Its x is the viewpoint the streamer
// follows.
type Walker struct {
	Position  mgl64.Vec2
	speed     float64
	turnAfter float64
	direction float64
	travelled float64
	turns     int
}

func NewWalker(spawn mgl64.Vec2, speed, turnAfter float64) *Walker {
	return &Walker{
		Position:  spawn,
		speed:     speed,
		turnAfter: turnAfter,
		direction: 1,
	}
}

// Step moves the walker and snaps it onto the ground reported by height.
func (w *Walker) Step(delta time.Duration, height func(x float64) float64) {
	distance := w.speed * delta.Seconds()
	if distance <= 0 {
		return
	}
	w.Position[0] += w.direction * distance
	w.travelled += distance
	if w.turnAfter > 0 && w.travelled >= w.turnAfter {
		w.direction = -w.direction
		w.travelled = 0
		w.turns++
	}
	if height != nil {
		w.Position[1] = height(w.Position.X())
	}
}

func (w *Walker) Direction() float64 { return w.direction }

// Turns counts direction reversals.
func (w *Walker) Turns() int { return w.turns }
