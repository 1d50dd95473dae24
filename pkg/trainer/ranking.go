package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainBPR ranks an observed item above a uniformly drawn one for a user drawn by
// activity, with the margin-gated BPR loss.
func trainBPR(s *session) error {
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
		userLoss, posLoss, negLoss := bufs[0], bufs[1], bufs[2]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := vc.DrawVertex(rng)
			for j := 0; j < cfg.NumNegative; j++ {
				pos := vc.DrawContext(rng, user)
				neg := vc.DrawContextUniformly(rng)
				if optimizer.MarginBPRLoss(store.Vector(user), store.Vector(pos), store.Vector(neg), cfg.Margin, userLoss, posLoss, negLoss) {
					store.UpdateWithL2(pos, posLoss, alpha, cfg.ItemReg)
					store.UpdateWithL2(neg, negLoss, alpha, cfg.ItemReg)
					clear(posLoss)
					clear(negLoss)
				}
			}
			store.UpdateWithL2(user, userLoss, alpha, cfg.UserReg)
			clear(userLoss)
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, g)
}

// trainHopRec extends BPR to higher-order neighbours: positives are taken every
// second step of a walk on the undirected graph, with margin and learning rate
// shrinking with the hop distance.
func trainHopRec(s *session) error {
	cfg := s.cfg
	g, err := s.loadGraph(cfg.Train, "train", false)
	if err != nil {
		return err
	}
	ng, err := s.loadGraphWithLabels(cfg.Train, "neighbor", true, g.Labels())
	if err != nil {
		return err
	}
	vc, err := sampler.NewVertexContext(g)
	if err != nil {
		return err
	}
	neighbors, err := sampler.NewVertexContext(ng)
	if err != nil {
		return err
	}
	store, err := s.openStore(vc.VertexCount(), g.Index)
	if err != nil {
		return err
	}

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(2, cfg.Dimension)
		userLoss, itemLoss := bufs[0], bufs[1]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := vc.DrawVertex(rng)
			path := neighbors.DrawWalk(rng, user, cfg.NumHop*2)

			updates := 0
			for hop := 1; hop <= cfg.NumHop; hop++ {
				at := (hop - 1) * 2
				if at >= len(path) {
					break
				}
				pos := path[at]
				h := float64(hop)
				for j := 0; j < cfg.NumNegative; j++ {
					neg := neighbors.DrawNegative(rng)
					if optimizer.HopRecLoss(store.Vector(user), store.Vector(pos), store.Vector(neg), cfg.Margin/h, userLoss, itemLoss) {
						updates++
						store.UpdateWithL2(pos, itemLoss, alpha/h, cfg.L2Reg*h)
						store.UpdateWithL2(neg, itemLoss, -alpha/h, -cfg.L2Reg)
						clear(itemLoss)
					}
				}
			}
			if updates > 0 {
				u := float64(updates)
				store.UpdateWithL2(user, userLoss, alpha/u, cfg.L2Reg*u)
				clear(userLoss)
			}
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, g)
}

// trainSkewOpt is the ranking loop driven by the skew kernel: only pairs whose
// standardised score falls inside the location/scale window produce updates.
func trainSkewOpt(s *session) error {
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
		bufs := lossBuffers(2, cfg.Dimension)
		userLoss, itemLoss := bufs[0], bufs[1]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := vc.DrawVertex(rng)
			updates := 0
			for j := 0; j < cfg.NumNegative; j++ {
				pos := vc.DrawContext(rng, user)
				neg := vc.DrawContextUniformly(rng)
				if optimizer.SkewOptLoss(store.Vector(user), store.Vector(pos), store.Vector(neg), cfg.Location, cfg.Scale, userLoss, itemLoss) {
					updates++
					store.UpdateWithL2(pos, itemLoss, alpha, cfg.L2Reg)
					store.UpdateWithL2(neg, itemLoss, -alpha, -cfg.L2Reg)
					clear(itemLoss)
				}
			}
			if updates > 0 {
				u := float64(updates)
				store.UpdateWithL2(user, userLoss, alpha/u, cfg.L2Reg*u)
				clear(userLoss)
			}
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, g)
}
