package optimizer

import "math"

const (
	// MaxSigmoid bounds the cached range; FastSigmoid saturates outside [-MaxSigmoid, MaxSigmoid].
	MaxSigmoid = 8.0
	// SigmoidTableSize is the number of buckets spanning the cached range.
	SigmoidTableSize = 1000
)

// The upper edge x = MaxSigmoid maps to bucket SigmoidTableSize, hence the extra entry.
var sigmoidTable [SigmoidTableSize + 1]float64

func init() {
	for i := range sigmoidTable {
		x := float64(i)*2*MaxSigmoid/SigmoidTableSize - MaxSigmoid
		sigmoidTable[i] = 1 / (1 + math.Exp(-x))
	}
}

// FastSigmoid approximates 1/(1+e^-x) with a table lookup, returning exactly 0
// below -MaxSigmoid and 1 above MaxSigmoid.
func FastSigmoid(x float64) float64 {
	switch {
	case x < -MaxSigmoid:
		return 0
	case x > MaxSigmoid:
		return 1
	case x != x: // NaN
		return 0.5
	}
	return sigmoidTable[int((x+MaxSigmoid)*SigmoidTableSize/MaxSigmoid/2)]
}
