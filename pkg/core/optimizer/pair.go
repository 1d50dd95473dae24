package optimizer

// DotProductLoss fits the raw inner product of from and to to label:
// gradient = label - from·to.
func DotProductLoss(from, to []float64, label float64, fromLoss, toLoss []float64) {
	g := label - dot(from, to)
	axpy(g, to, fromLoss)
	axpy(g, from, toLoss)
}

// LogLikelihoodLoss is the logistic pair loss used by skip-gram with negative
// sampling: gradient = label - sigmoid(from·to). Label 1 pulls the pair together,
// label 0 pushes it apart.
func LogLikelihoodLoss(from, to []float64, label float64, fromLoss, toLoss []float64) {
	g := label - FastSigmoid(dot(from, to))
	axpy(g, to, fromLoss)
	axpy(g, from, toLoss)
}
