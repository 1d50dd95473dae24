package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainI2I learns item vectors only: for three items a, b and t of one user,
// a + b is fitted to t, and to num_negative uniformly drawn items with label 0.
// Only the items (targets of the interaction graph) are written.
func trainI2I(s *session) error {
	cfg := s.cfg
	g, err := s.loadGraph(cfg.Train, "train", cfg.Undirected)
	if err != nil {
		return err
	}
	vc, err := sampler.NewVertexContext(g)
	if err != nil {
		return err
	}
	store, err := s.openStore(vc.VertexCount(), g.Index)
	if err != nil {
		return err
	}

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(3, cfg.Dimension)
		givenLoss, relLoss, targetLoss := bufs[0], bufs[1], bufs[2]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := vc.DrawVertex(rng)
			given := vc.DrawContext(rng, user)
			rel := vc.DrawContext(rng, user)
			target := vc.DrawContext(rng, user)
			optimizer.TransLoss(store.Vector(given), store.Vector(rel), store.Vector(target), 1, givenLoss, relLoss, targetLoss)
			store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
			store.UpdateWithL2(target, targetLoss, alpha, cfg.L2Reg)
			clear(relLoss)
			clear(targetLoss)

			for j := 0; j < cfg.NumNegative; j++ {
				rel = vc.DrawContext(rng, user)
				target = vc.DrawContextUniformly(rng)
				optimizer.TransLoss(store.Vector(given), store.Vector(rel), store.Vector(target), 0, givenLoss, relLoss, targetLoss)
				store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
				store.UpdateWithL2(target, targetLoss, alpha, cfg.L2Reg)
				clear(relLoss)
				clear(targetLoss)
			}
			store.UpdateWithL2(given, givenLoss, alpha, cfg.L2Reg)
			clear(givenLoss)
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.saveWith(store, g.Labels(), func() error {
		return store.SaveSubset(cfg.Save, g, g.ToNodes(), false)
	})
}
