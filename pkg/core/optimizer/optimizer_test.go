package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastSigmoid(t *testing.T) {
	assert.Equal(t, 0.0, FastSigmoid(-8.01))
	assert.Equal(t, 1.0, FastSigmoid(8.01))
	assert.InDelta(t, 0.5, FastSigmoid(0), 0.01)
	assert.InDelta(t, 1/(1+math.Exp(-8)), FastSigmoid(8), 1e-12, "upper edge hits the last bucket")
	assert.InDelta(t, 1/(1+math.Exp(8)), FastSigmoid(-8), 1e-12)

	for x := -7.9; x < 8; x += 0.37 {
		assert.InDelta(t, 1/(1+math.Exp(-x)), FastSigmoid(x), 0.005, "x=%v", x)
	}
}

func TestDotBackendsAgree(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{-1, 0.5, 2, 0, 1}
	assert.InDelta(t, dotGo(a, b), dotGonum(a, b), 1e-12)
	assert.InDelta(t, 11.0, Dot(a, b), 1e-12)

	y1 := []float64{1, 1, 1, 1, 1}
	y2 := []float64{1, 1, 1, 1, 1}
	axpyGo(2, a, y1)
	axpyGonum(2, a, y2)
	assert.InDeltaSlice(t, y1, y2, 1e-12)
	assert.NotEmpty(t, Implementation())
}

func TestLogLikelihoodSigns(t *testing.T) {
	from := []float64{0.01, -0.02, 0.03, 0.01}
	to := []float64{0.02, 0.01, -0.01, 0.02}

	t.Run("positive label raises the score", func(t *testing.T) {
		fromLoss, toLoss := make([]float64, 4), make([]float64, 4)
		LogLikelihoodLoss(from, to, 1, fromLoss, toLoss)

		f, g := step(from, fromLoss, 0.5), step(to, toLoss, 0.5)
		assert.Greater(t, Dot(f, g), Dot(from, to))
	})

	t.Run("zero label lowers the score", func(t *testing.T) {
		fromLoss, toLoss := make([]float64, 4), make([]float64, 4)
		LogLikelihoodLoss(from, to, 0, fromLoss, toLoss)

		f, g := step(from, fromLoss, 0.5), step(to, toLoss, 0.5)
		assert.Less(t, Dot(f, g), Dot(from, to))
	})
}

func TestDotProductLoss(t *testing.T) {
	from := []float64{1, 0}
	to := []float64{0.5, 0.5}
	fromLoss, toLoss := make([]float64, 2), make([]float64, 2)

	// gradient = 1 - 0.5 = 0.5
	DotProductLoss(from, to, 1, fromLoss, toLoss)
	assert.InDeltaSlice(t, []float64{0.25, 0.25}, fromLoss, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0}, toLoss, 1e-12)
}

func TestMarginBPRAboveMarginIsNoOp(t *testing.T) {
	from := []float64{1, 1}
	pos := []float64{2, 2}
	neg := []float64{0, 0}
	fromLoss := []float64{0.1, 0.2}
	posLoss := []float64{0.3, 0.4}
	negLoss := []float64{0.5, 0.6}

	// prediction = 4 > margin 1
	ok := MarginBPRLoss(from, pos, neg, 1, fromLoss, posLoss, negLoss)
	assert.False(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, fromLoss)
	assert.Equal(t, []float64{0.3, 0.4}, posLoss)
	assert.Equal(t, []float64{0.5, 0.6}, negLoss)
}

func TestMarginBPRBelowMarginRanksPositiveHigher(t *testing.T) {
	from := []float64{0.1, -0.1}
	pos := []float64{0.0, 0.1}
	neg := []float64{0.1, 0.0}
	fromLoss, posLoss, negLoss := make([]float64, 2), make([]float64, 2), make([]float64, 2)

	require.True(t, MarginBPRLoss(from, pos, neg, 1, fromLoss, posLoss, negLoss))
	assert.InDeltaSlice(t, posLoss, neg2(negLoss), 1e-12, "pos and neg receive opposite updates")

	before := Dot(from, pos) - Dot(from, neg)
	f := step(from, fromLoss, 0.1)
	p, n := step(pos, posLoss, 0.1), step(neg, negLoss, 0.1)
	assert.Greater(t, Dot(f, p)-Dot(f, n), before)
}

func TestBPRAndHopRec(t *testing.T) {
	from := []float64{0.2, 0.1}
	pos := []float64{0.1, 0.3}
	neg := []float64{0.3, 0.1}

	bprFrom, bprTo := make([]float64, 2), make([]float64, 2)
	BPRLoss(from, pos, neg, bprFrom, bprTo)

	hopFrom, hopTo := make([]float64, 2), make([]float64, 2)
	require.True(t, HopRecLoss(from, pos, neg, 10, hopFrom, hopTo))
	assert.InDeltaSlice(t, bprFrom, hopFrom, 1e-12, "below the margin HopRec matches BPR")
	assert.InDeltaSlice(t, bprTo, hopTo, 1e-12)

	hopFrom, hopTo = make([]float64, 2), make([]float64, 2)
	assert.False(t, HopRecLoss(from, pos, neg, -1, hopFrom, hopTo))
	assert.Equal(t, []float64{0, 0}, hopFrom)
}

func TestTransLoss(t *testing.T) {
	from := []float64{0.1, 0.0}
	rel := []float64{0.0, 0.1}
	to := []float64{0.2, 0.2}
	fromLoss, relLoss, toLoss := make([]float64, 2), make([]float64, 2), make([]float64, 2)

	TransLoss(from, rel, to, 1, fromLoss, relLoss, toLoss)
	assert.Equal(t, fromLoss, relLoss, "source and relation share the gradient")
	for _, v := range toLoss {
		assert.Greater(t, v, 0.0)
	}
}

func TestTransMarginBPR(t *testing.T) {
	from := []float64{1, 0}
	rel := []float64{0, 1}
	pos := []float64{1, 1}
	neg := []float64{0, 0}
	zero := func() []float64 { return make([]float64, 2) }

	// prediction = (1,1)·(1,1) = 2
	fl, rl, pl, nl := zero(), zero(), zero(), zero()
	assert.False(t, TransMarginBPRLoss(from, rel, pos, neg, 1, fl, rl, pl, nl))
	assert.Equal(t, zero(), fl)

	assert.True(t, TransMarginBPRLoss(from, rel, pos, neg, 3, fl, rl, pl, nl))
	g := FastSigmoid(-2)
	assert.InDeltaSlice(t, []float64{g, g}, fl, 1e-12)
	assert.InDeltaSlice(t, []float64{-g, -g}, nl, 1e-12)

	bfl, brl, bpl, bnl := zero(), zero(), zero(), zero()
	TransBPRLoss(from, rel, pos, neg, bfl, brl, bpl, bnl)
	assert.InDeltaSlice(t, fl, bfl, 1e-12)
	assert.InDeltaSlice(t, pl, bpl, 1e-12)
}

func TestSkewGradientWindow(t *testing.T) {
	tests := []struct {
		name       string
		prediction float64
		want       float64
	}{
		{"above window", 2.5, 0},
		{"at center", 0, 0},
		{"inside window", 1, FastSigmoid(-1)},
		{"clamped below", -5, FastSigmoid(8) * 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SkewGradient(tt.prediction, 0, 1), 1e-12)
		})
	}

	// scale divides both the standardised score and the result.
	assert.InDelta(t, FastSigmoid(-1)/2, SkewGradient(2, 0, 2), 1e-12)
}

func TestSkewOptLoss(t *testing.T) {
	from := []float64{1, 0}
	pos := []float64{5, 0}
	neg := []float64{0, 0}
	fromLoss, toLoss := make([]float64, 2), make([]float64, 2)

	// prediction 5 lies above the window.
	assert.False(t, SkewOptLoss(from, pos, neg, 0, 1, fromLoss, toLoss))
	assert.Equal(t, []float64{0, 0}, fromLoss)

	pos[0] = -1
	require.True(t, SkewOptLoss(from, pos, neg, 0, 1, fromLoss, toLoss))
	assert.Greater(t, toLoss[0], 0.0)
}

func step(v, loss []float64, alpha float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] + alpha*loss[i]
	}
	return out
}

func neg2(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = -v[i]
	}
	return out
}
