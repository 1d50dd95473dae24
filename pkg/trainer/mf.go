package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainMF is implicit matrix factorisation: the raw inner product of an edge's
// endpoints is fitted to 1, and to -1 for num_negative sampled non-contexts.
func trainMF(s *session) error {
	cfg := s.cfg
	g, err := s.loadGraph(cfg.Train, "train", cfg.Undirected)
	if err != nil {
		return err
	}
	es, err := sampler.NewEdge(g)
	if err != nil {
		return err
	}
	store, err := s.openStore(es.VertexCount(), g.Index)
	if err != nil {
		return err
	}

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(2, cfg.Dimension)
		userLoss, itemLoss := bufs[0], bufs[1]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user, item := es.DrawEdge(rng)
			optimizer.DotProductLoss(store.Vector(user), store.Vector(item), 1, userLoss, itemLoss)
			store.UpdateWithL2(item, itemLoss, alpha, cfg.L2Reg)
			clear(itemLoss)

			for j := 0; j < cfg.NumNegative; j++ {
				item = es.DrawNegative(rng)
				optimizer.DotProductLoss(store.Vector(user), store.Vector(item), -1, userLoss, itemLoss)
				store.UpdateWithL2(item, itemLoss, alpha, cfg.L2Reg)
				clear(itemLoss)
			}
			store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
			clear(userLoss)
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, g)
}
