package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/embedding"
	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainHPE fits vertex vectors to the vertices reached by short walks. A vertex
// drawn by activity walks walk_steps hops; every reached vertex is a positive
// context for it, with num_negative negatives, and the first hop is also fitted
// in the reverse direction.
func trainHPE(s *session) error {
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

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(2, cfg.Dimension)
		vertexLoss, contextLoss := bufs[0], bufs[1]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			v := vc.DrawVertex(rng)
			for step, c := range vc.DrawWalk(rng, v, cfg.WalkSteps) {
				if step == 0 {
					optimizer.LogLikelihoodLoss(vertices.Vector(c), contexts.Vector(v), 1, vertexLoss, contextLoss)
					vertices.UpdateWithL2(c, vertexLoss, alpha, cfg.L2Reg)
					contexts.UpdateWithL2(v, contextLoss, alpha, cfg.L2Reg)
					clear(vertexLoss)
					clear(contextLoss)
				}

				optimizer.LogLikelihoodLoss(vertices.Vector(v), contexts.Vector(c), 1, vertexLoss, contextLoss)
				contexts.UpdateWithL2(c, contextLoss, alpha, cfg.L2Reg)
				clear(contextLoss)
				for j := 0; j < cfg.NumNegative; j++ {
					neg := vc.DrawNegative(rng)
					optimizer.LogLikelihoodLoss(vertices.Vector(v), contexts.Vector(neg), 0, vertexLoss, contextLoss)
					contexts.UpdateWithL2(neg, contextLoss, alpha, cfg.L2Reg)
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
