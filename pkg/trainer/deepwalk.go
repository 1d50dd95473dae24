package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/embedding"
	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainDeepWalk learns vertex vectors with skip-gram over random walks. Every
// vertex roots walk_times walks of walk_length vertices, the root included, so a
// walk takes walk_length-1 hops. Each (center, context) pair of a walk is a
// positive example for a separate context table, paired with num_negative
// negatives drawn from the skewed in-degree distribution.
func trainDeepWalk(s *session) error {
	cfg := s.cfg
	g, err := s.loadGraph(cfg.Train, "train", cfg.Undirected)
	if err != nil {
		return err
	}
	vc, err := sampler.NewVertexContext(g)
	if err != nil {
		return err
	}

	n := vc.VertexCount()
	vertices, err := s.openStore(n, g.Index)
	if err != nil {
		return err
	}
	contexts := embedding.New(n, cfg.Dimension, cfg.Seed+1)

	workers := cfg.Workers
	sched := s.schedule(uint64(cfg.WalkTimes) * uint64(n))
	err = sched.run(workers, cfg.Seed, func(w int) workerFunc {
		bufs := lossBuffers(2, cfg.Dimension)
		vertexLoss, contextLoss := bufs[0], bufs[1]

		return func(rng *rand.Rand, i uint64, alpha float64) {
			root := int((uint64(w) + i*uint64(workers)) % uint64(n))
			centers, ctxs := vc.DrawSkipGram(rng, root, cfg.WalkLength-1, cfg.WindowSize)
			for k, v := range centers {
				c := ctxs[k]
				optimizer.LogLikelihoodLoss(vertices.Vector(v), contexts.Vector(c), 1, vertexLoss, contextLoss)
				contexts.UpdateWithL2(c, contextLoss, alpha, cfg.L2Reg)
				clear(contextLoss)

				for j := 0; j < cfg.NumNegative; j++ {
					c = vc.DrawNegative(rng)
					optimizer.LogLikelihoodLoss(vertices.Vector(v), contexts.Vector(c), 0, vertexLoss, contextLoss)
					contexts.UpdateWithL2(c, contextLoss, alpha, cfg.L2Reg)
					clear(contextLoss)
				}
				vertices.UpdateWithL2(v, vertexLoss, alpha, cfg.L2Reg)
				clear(vertexLoss)
			}
		}
	})
	if err != nil {
		s.closeStore(vertices)
		return err
	}
	return s.save(vertices, g)
}
