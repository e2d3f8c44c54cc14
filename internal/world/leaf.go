package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// LeafState is a phase of the leaf lifecycle.
type LeafState int

const (
	LeafDormant LeafState = iota
	LeafAttached
	LeafFalling
	LeafGrounded
)

func (s LeafState) String() string {
	switch s {
	case LeafDormant:
		return "dormant"
	case LeafAttached:
		return "attached"
	case LeafFalling:
		return "falling"
	case LeafGrounded:
		return "grounded"
	default:
		return "unknown"
	}
}

// LeafSchedule holds the per-leaf timings drawn once at creation.
type LeafSchedule struct {
	StartDelay time.Duration
	LifeTime   time.Duration
	DeathTime  time.Duration
}

// LeafMotion holds the timings and velocities shared by all leaves.
type LeafMotion struct {
	Size          float64
	FadeOut       time.Duration
	SwayCycle     time.Duration
	SwingCycle    time.Duration
	FallVelocityX float64
	FallVelocityY float64
	SwingAngle    float64
	WidthFactor   float64
}

// GroundProbe answers whether a ground block is close enough to the surface
// for a falling leaf to rest on it.
type GroundProbe interface {
	IsWithinTopTwoLayers(block *Block) bool
}

// Leaf is a crown cell that sways, falls, rests and regrows on its own timers.
type Leaf struct {
	id       uuid.UUID
	column   int
	origin   mgl64.Vec2
	schedule LeafSchedule
	motion   LeafMotion
	probe    GroundProbe

	state   LeafState
	elapsed time.Duration
	landed  bool
	cycles  int

	body   Body
	angle  *Transition
	width  *Transition
	swing  *Transition
	fading *Transition
}

// NewLeaf creates a leaf at origin belonging to the tree anchored at column.
func NewLeaf(origin mgl64.Vec2, column int, schedule LeafSchedule, motion LeafMotion, probe GroundProbe) *Leaf {
	l := &Leaf{
		id:       uuid.New(),
		column:   column,
		origin:   origin,
		schedule: schedule,
		motion:   motion,
		probe:    probe,
	}
	l.restart()
	return l
}

func (l *Leaf) ID() uuid.UUID          { return l.id }
func (l *Leaf) Tag() Tag               { return TagLeaf }
func (l *Leaf) Column() int            { return l.column }
func (l *Leaf) State() LeafState       { return l.state }
func (l *Leaf) Origin() mgl64.Vec2     { return l.origin }
func (l *Leaf) Schedule() LeafSchedule { return l.schedule }
func (l *Leaf) Body() Body             { return l.body }
func (l *Leaf) Landed() bool           { return l.landed }

// Cycles counts completed resets.
func (l *Leaf) Cycles() int { return l.cycles }

// restart puts the leaf back on its tree. A leaf with no start delay skips
// the dormant phase.
func (l *Leaf) restart() {
	l.body = Body{
		Position: l.origin,
		Opacity:  1,
		Width:    l.motion.Size,
		Height:   l.motion.Size,
	}
	l.landed = false
	l.swing = nil
	l.fading = nil
	if l.schedule.StartDelay > 0 {
		l.state = LeafDormant
		l.angle = nil
		l.width = nil
		return
	}
	l.enterAttached()
}

func (l *Leaf) enterAttached() {
	l.state = LeafAttached
	l.angle = NewTransition(-l.motion.SwingAngle, l.motion.SwingAngle, l.motion.SwayCycle, TransitionBackAndForth)
	l.width = NewTransition(l.motion.Size, l.motion.Size*l.motion.WidthFactor, l.motion.SwayCycle, TransitionBackAndForth)
}

func (l *Leaf) enterFalling() {
	l.state = LeafFalling
	l.body.Velocity = mgl64.Vec2{-l.motion.FallVelocityX, l.motion.FallVelocityY}
	l.swing = NewTransition(-l.motion.FallVelocityX, l.motion.FallVelocityX, l.motion.SwingCycle, TransitionBackAndForth)
	l.fading = NewTransition(1, 0, l.motion.FadeOut, TransitionOnce)
}

func (l *Leaf) enterGrounded() {
	l.state = LeafGrounded
	l.stopAnimations()
	l.body.Velocity = mgl64.Vec2{}
	l.body.Opacity = 0
	l.fading = nil
}

func (l *Leaf) stopAnimations() {
	l.angle = nil
	l.width = nil
	l.swing = nil
}

// Update advances the lifecycle by delta. At most one state transition
// happens per call; time beyond a phase boundary carries into the next phase.
func (l *Leaf) Update(delta time.Duration) {
	if delta <= 0 {
		return
	}
	l.elapsed += delta

	switch l.state {
	case LeafDormant:
		if l.elapsed >= l.schedule.StartDelay {
			l.elapsed -= l.schedule.StartDelay
			l.enterAttached()
		}
	case LeafAttached:
		l.animateSway(delta)
		if l.elapsed >= l.schedule.LifeTime {
			l.elapsed -= l.schedule.LifeTime
			l.enterFalling()
		}
	case LeafFalling:
		l.animateFall(delta)
		if l.elapsed >= l.motion.FadeOut {
			l.elapsed -= l.motion.FadeOut
			l.enterGrounded()
		}
	case LeafGrounded:
		if l.elapsed >= l.schedule.DeathTime {
			l.elapsed -= l.schedule.DeathTime
			l.cycles++
			l.restart()
		}
	}
}

func (l *Leaf) animateSway(delta time.Duration) {
	if l.angle != nil {
		l.body.Angle = l.angle.Advance(delta)
	}
	if l.width != nil {
		l.body.Width = l.width.Advance(delta)
	}
}

func (l *Leaf) animateFall(delta time.Duration) {
	if l.fading != nil {
		l.body.Opacity = l.fading.Advance(delta)
	}
	if l.landed {
		l.body.Velocity = mgl64.Vec2{}
		return
	}
	if l.swing != nil {
		l.body.Velocity[0] = l.swing.Advance(delta)
	}
	l.body.Step(delta)
}

// ShouldCollideWith reports whether the leaf may touch object: only while
// falling with a non-zero velocity, and only with top ground layers.
func (l *Leaf) ShouldCollideWith(object Object) bool {
	if l.state != LeafFalling || l.landed {
		return false
	}
	if l.body.Velocity.Len() == 0 {
		return false
	}
	block, ok := object.(*Block)
	if !ok || block.Tag() != TagGround {
		return false
	}
	return l.probe != nil && l.probe.IsWithinTopTwoLayers(block)
}

// Land stops the sway and swing animations and pins the leaf in place. The
// fade keeps running.
func (l *Leaf) Land() {
	if l.state != LeafFalling || l.landed {
		return
	}
	l.landed = true
	l.stopAnimations()
	l.body.Velocity = mgl64.Vec2{}
}
