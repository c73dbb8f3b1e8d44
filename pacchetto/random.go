package pacchetto

import (
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Jitter spreads base uniformly over [base*(1-factor), base*(1+factor)].
// factor is clamped to [0, 1]; the same seed always yields the same duration.
func Jitter(seed uint64, base time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return base
	}
	if factor > 1 {
		factor = 1
	}

	var seedBytes [32]byte
	binary.LittleEndian.PutUint64(seedBytes[0:8], seed)
	rnd := rand.New(rand.NewChaCha8(seedBytes))

	scale := 1 - factor + rnd.Float64()*2*factor
	return time.Duration(float64(base) * scale)
}
