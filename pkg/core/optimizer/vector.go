// Package optimizer provides the stateless loss-and-gradient kernels used by the
// training algorithms.
//
// A kernel scores two to four embedding vectors, turns the score into a scalar
// gradient (usually through the cached sigmoid), and scatters gradient*partner into
// each participant's loss accumulator. Kernels never touch the learning rate; the
// caller applies it when writing the accumulators back to the embedding store.
//
// All vectors passed to one call must have the same length.
//
// The dot and axpy primitives are dispatched at init time: Gonum's BLAS
// implementation when the CPU offers SIMD, plain Go loops otherwise.
package optimizer

import (
	"log/slog"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

var (
	dot  = dotGo
	axpy = axpyGo

	implementation = "go"
)

func init() {
	if cpuid.CPU.Has(cpuid.SSE2) || cpuid.CPU.Has(cpuid.ASIMD) {
		dot = dotGonum
		axpy = axpyGonum
		implementation = "gonum"
	}
	slog.Debug("[Optimizer] Vector kernels selected", "implementation", implementation, "cpu", cpuid.CPU.BrandName)
}

// Implementation names the dot/axpy backend selected for this CPU.
func Implementation() string { return implementation }

// Dot returns the inner product of a and b.
func Dot(a, b []float64) float64 { return dot(a, b) }

// --- WORKSPACE POOL ---

// workspace lends scratch vectors for intermediate values (pos-neg differences,
// relation-shifted sources) so the hot loop does not allocate.
var workspace = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 256)
		return &s
	},
}

func borrow(n int) *[]float64 {
	p := workspace.Get().(*[]float64)
	if cap(*p) < n {
		*p = make([]float64, n)
	}
	*p = (*p)[:n]
	return p
}

func release(p *[]float64) { workspace.Put(p) }

// --- PURE GO ---

func dotGo(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// axpyGo computes y += alpha*x.
func axpyGo(alpha float64, x, y []float64) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}

// --- GONUM ---

var gonumEngine = gonum.Implementation{}

func dotGonum(a, b []float64) float64 {
	return gonumEngine.Ddot(len(a), a, 1, b, 1)
}

func axpyGonum(alpha float64, x, y []float64) {
	gonumEngine.Daxpy(len(x), alpha, x, 1, y, 1)
}

// sub writes a-b into dst.
func sub(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// add writes a+b into dst.
func add(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}
