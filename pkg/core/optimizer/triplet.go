package optimizer

// Triplet kernels score a source against a (positive, negative) target pair via
// prediction = from·(pos-neg).

// BPRLoss is the Bayesian personalised ranking loss: gradient = sigmoid(-prediction).
// toLoss receives gradient*from; the caller adds it to pos and subtracts it from neg.
func BPRLoss(from, pos, neg, fromLoss, toLoss []float64) {
	diff := borrow(len(from))
	defer release(diff)
	d := *diff

	sub(d, pos, neg)
	g := FastSigmoid(-dot(from, d))
	axpy(g, d, fromLoss)
	axpy(g, from, toLoss)
}

// MarginBPRLoss is BPR with a margin. When the prediction already exceeds margin it
// reports false and leaves every accumulator untouched. Otherwise
// gradient = sigmoid(margin - prediction) is scattered into the three accumulators,
// negatively for neg.
func MarginBPRLoss(from, pos, neg []float64, margin float64, fromLoss, posLoss, negLoss []float64) bool {
	diff := borrow(len(from))
	defer release(diff)
	d := *diff

	sub(d, pos, neg)
	prediction := dot(from, d)
	if prediction > margin {
		return false
	}
	g := FastSigmoid(margin - prediction)
	axpy(g, d, fromLoss)
	axpy(g, from, posLoss)
	axpy(-g, from, negLoss)
	return true
}

// HopRecLoss is the margin-gated ranking loss with a shared target accumulator:
// no-op when prediction > margin, else gradient = sigmoid(-prediction).
func HopRecLoss(from, pos, neg []float64, margin float64, fromLoss, toLoss []float64) bool {
	diff := borrow(len(from))
	defer release(diff)
	d := *diff

	sub(d, pos, neg)
	prediction := dot(from, d)
	if prediction > margin {
		return false
	}
	g := FastSigmoid(-prediction)
	axpy(g, d, fromLoss)
	axpy(g, from, toLoss)
	return true
}

// TransLoss scores the relation-shifted source from+rel against to:
// gradient = label - sigmoid((from+rel)·to).
func TransLoss(from, rel, to []float64, label float64, fromLoss, relLoss, toLoss []float64) {
	fused := borrow(len(from))
	defer release(fused)
	f := *fused

	add(f, from, rel)
	g := label - FastSigmoid(dot(f, to))
	axpy(g, to, fromLoss)
	axpy(g, to, relLoss)
	axpy(g, f, toLoss)
}

// SkewGradient maps a prediction to the skew loss gradient. The prediction is
// standardised as s = (prediction-location)/scale; above 2 the gradient is zero,
// below -2 s is clamped to -2, and the gradient is sigmoid(-s^3)*s^2/scale.
func SkewGradient(prediction, location, scale float64) float64 {
	s := (prediction - location) / scale
	if s > 2 {
		return 0
	}
	if s < -2 {
		s = -2
	}
	return FastSigmoid(-s*s*s) * s * s / scale
}

// SkewOptLoss is the ranking loss driven by SkewGradient. It reports false and
// leaves the accumulators untouched when the gradient is zero.
func SkewOptLoss(from, pos, neg []float64, location, scale float64, fromLoss, toLoss []float64) bool {
	diff := borrow(len(from))
	defer release(diff)
	d := *diff

	sub(d, pos, neg)
	g := SkewGradient(dot(from, d), location, scale)
	if g == 0 {
		return false
	}
	axpy(g, d, fromLoss)
	axpy(g, from, toLoss)
	return true
}
