package theme

// Mixing constants. All arithmetic wraps modulo 2^32.
const (
	mulberryIncrement uint32 = 0x6d2b79f5
	subSeedMultiplier uint32 = 0x85ebca6b
	subSeedGolden     uint32 = 0x9e3779b9
	mixMultiplier1    uint32 = 0x7feb352d
	mixMultiplier2    uint32 = 0x846ca68b
)

// Generator is a mulberry32 pseudo-random source. The zero value is a valid
// generator seeded with 0. A Generator is not safe for concurrent use; create
// one per goroutine, they are cheap.
type Generator struct {
	state uint32
}

// NewGenerator returns a generator seeded with seed. Two generators with the
// same seed produce identical sequences.
func NewGenerator(seed uint32) *Generator {
	return &Generator{state: seed}
}

// Uint32 advances the generator and returns the next raw 32-bit output.
func (g *Generator) Uint32() uint32 {
	g.state += mulberryIncrement
	t := g.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Next returns the next value in [0, 1).
func (g *Generator) Next() float64 {
	return float64(g.Uint32()) / 4294967296
}

// Mix32 is a 32-bit avalanche finalizer: every input bit affects every
// output bit with roughly even probability.
func Mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= mixMultiplier1
	x ^= x >> 15
	x *= mixMultiplier2
	x ^= x >> 16
	return x
}

// SubSeed derives an axis-specific seed from a base seed and a salt.
// Distinct salts yield independent-looking streams from one base seed.
func SubSeed(seed, salt uint32) uint32 {
	return Mix32(seed ^ subSeedGolden ^ salt*subSeedMultiplier)
}
