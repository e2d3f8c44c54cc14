package terrain

import (
	"math"

	"github.com/aquilax/go-perlin"

	"worldstream/internal/config"
)

// Noise is a pure, seeded scalar field returning values in [-1, 1].
type Noise interface {
	Noise(v float64) float64
}

// NoiseField is one-dimensional Perlin noise sampled at a fixed frequency.
type NoiseField struct {
	perlin    *perlin.Perlin
	frequency float64
}

func NewNoiseField(cfg config.NoiseConfig, seed int64) *NoiseField {
	alpha, beta := cfg.Alpha, cfg.Beta
	if alpha <= 0 {
		alpha = 2
	}
	if beta <= 0 {
		beta = 2
	}
	octaves := cfg.Octaves
	if octaves <= 0 {
		octaves = 3
	}
	frequency := cfg.Frequency
	if frequency <= 0 {
		frequency = 0.13
	}
	return &NoiseField{
		perlin:    perlin.NewPerlin(alpha, beta, int32(octaves), seed),
		frequency: frequency,
	}
}

// Noise samples the field. Perlin noise vanishes on lattice points, so v is
// scaled by the frequency before sampling.
func (n *NoiseField) Noise(v float64) float64 {
	sample := n.perlin.Noise1D(v * n.frequency)
	if math.IsNaN(sample) {
		return 0
	}
	return clamp(sample, -1, 1)
}

// Salts keep the random streams for different decisions about the same cell
// independent of each other.
const (
	saltPlant uint64 = iota + 1
	saltTrunk
	saltCrown
	saltLeaf
	saltSchedule
)

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// cellRNG is a small xorshift generator seeded purely from cell coordinates,
// the world seed and a salt. Two generators for the same inputs always yield
// the same sequence.
type cellRNG struct {
	state uint64
}

func newCellRNG(x, y int, seed int64, salt uint64) *cellRNG {
	state := splitmix64(uint64(hash3(x, y, int(seed))) ^ salt<<32 ^ uint64(seed)*0x9e3779b97f4a7c15)
	if state == 0 {
		state = 0x9e3779b97f4a7c15
	}
	return &cellRNG{state: state}
}

func splitmix64(v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	return v ^ (v >> 31)
}

func (r *cellRNG) next() uint64 {
	r.state ^= r.state << 7
	r.state ^= r.state >> 9
	r.state ^= r.state << 8
	return r.state
}

// Float64 returns a value in [0, 1).
func (r *cellRNG) Float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

// Intn returns a value in [0, n).
func (r *cellRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
