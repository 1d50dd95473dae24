package optimizer

// TransBPRLoss ranks pos above neg for the relation-shifted source:
// prediction = (from+rel)·(pos-neg), gradient = sigmoid(-prediction).
func TransBPRLoss(from, rel, pos, neg, fromLoss, relLoss, posLoss, negLoss []float64) {
	transRank(from, rel, pos, neg, fromLoss, relLoss, posLoss, negLoss, 0, false)
}

// TransMarginBPRLoss is TransBPRLoss gated by margin: no-op returning false when
// the prediction already exceeds it.
func TransMarginBPRLoss(from, rel, pos, neg []float64, margin float64, fromLoss, relLoss, posLoss, negLoss []float64) bool {
	return transRank(from, rel, pos, neg, fromLoss, relLoss, posLoss, negLoss, margin, true)
}

func transRank(from, rel, pos, neg, fromLoss, relLoss, posLoss, negLoss []float64, margin float64, gated bool) bool {
	n := len(from)
	srcBuf, tgtBuf := borrow(n), borrow(n)
	defer release(srcBuf)
	defer release(tgtBuf)
	src, tgt := *srcBuf, *tgtBuf

	add(src, from, rel)
	sub(tgt, pos, neg)
	prediction := dot(src, tgt)
	if gated && prediction > margin {
		return false
	}
	g := FastSigmoid(-prediction)
	axpy(g, tgt, fromLoss)
	axpy(g, tgt, relLoss)
	axpy(g, src, posLoss)
	axpy(-g, src, negLoss)
	return true
}
