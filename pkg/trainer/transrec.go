package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainTransRec models a user's next item as user + relation, where the
// relation is another item the user interacted with. Mode "loglikelihood"
// scores triples with the translational logistic loss, mode "bpr" ranks a
// positive item above a uniform one for the shifted user.
func trainTransRec(s *session) error {
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

	newWorker := func(int) workerFunc {
		bufs := lossBuffers(3, cfg.Dimension)
		userLoss, relLoss, itemLoss := bufs[0], bufs[1], bufs[2]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := vc.DrawVertex(rng)
			rel := vc.DrawContext(rng, user)
			item := vc.DrawContext(rng, user)
			optimizer.TransLoss(store.Vector(user), store.Vector(rel), store.Vector(item), 1, userLoss, relLoss, itemLoss)
			store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
			store.UpdateWithL2(item, itemLoss, alpha, cfg.L2Reg)
			clear(relLoss)
			clear(itemLoss)

			for j := 0; j < cfg.NumNegative; j++ {
				rel = vc.DrawContext(rng, user)
				item = vc.DrawContextUniformly(rng)
				optimizer.TransLoss(store.Vector(user), store.Vector(rel), store.Vector(item), 0, userLoss, relLoss, itemLoss)
				store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
				store.UpdateWithL2(item, itemLoss, alpha, cfg.L2Reg)
				clear(relLoss)
				clear(itemLoss)
			}
			store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
			clear(userLoss)
		}
	}

	if cfg.Mode == "bpr" {
		newWorker = func(int) workerFunc {
			bufs := lossBuffers(4, cfg.Dimension)
			userLoss, relLoss, posLoss, negLoss := bufs[0], bufs[1], bufs[2], bufs[3]

			return func(rng *rand.Rand, _ uint64, alpha float64) {
				user := vc.DrawVertex(rng)
				for j := 0; j < cfg.NumNegative; j++ {
					rel := vc.DrawContext(rng, user)
					pos := vc.DrawContext(rng, user)
					neg := vc.DrawContextUniformly(rng)
					optimizer.TransBPRLoss(store.Vector(user), store.Vector(rel), store.Vector(pos), store.Vector(neg),
						userLoss, relLoss, posLoss, negLoss)
					store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
					store.UpdateWithL2(pos, posLoss, alpha, cfg.L2Reg)
					store.UpdateWithL2(neg, negLoss, alpha, cfg.L2Reg)
					clear(relLoss)
					clear(posLoss)
					clear(negLoss)
				}
				store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
				clear(userLoss)
			}
		}
	}

	sched := s.schedule(cfg.TotalUpdates())
	if err := sched.run(cfg.Workers, cfg.Seed, newWorker); err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, g)
}
