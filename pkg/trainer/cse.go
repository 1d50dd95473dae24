package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/embedding"
	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// cseRankTrials bounds the search for a negative item that violates the margin.
const cseRankTrials = 16

// trainCSE learns user and item vectors from their interactions while also
// modelling each side's neighbourhood. Vertices reached by a short walk on the
// undirected interaction graph are fitted as contexts of the drawn user and
// item, in two separate context tables and at lambda times the learning rate.
// The user-item step is a margin-gated BPR search in mode "bpr" and a
// log-likelihood fit with uniform negatives in mode "loglikelihood".
func trainCSE(s *session) error {
	cfg := s.cfg
	ui, err := s.loadGraph(cfg.Train, "user_item", cfg.Undirected)
	if err != nil {
		return err
	}
	ng, err := s.loadGraphWithLabels(cfg.Train, "neighbor", true, ui.Labels())
	if err != nil {
		return err
	}
	uiSampler, err := sampler.NewVertexContext(ui)
	if err != nil {
		return err
	}
	neighbors, err := sampler.NewVertexContext(ng)
	if err != nil {
		return err
	}

	n := uiSampler.VertexCount()
	store, err := s.openStore(n, ui.Index)
	if err != nil {
		return err
	}
	userContexts := embedding.New(n, cfg.Dimension, cfg.Seed+1)
	itemContexts := embedding.New(n, cfg.Dimension, cfg.Seed+2)
	ranking := cfg.Mode == "bpr"

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(5, cfg.Dimension)
		centerLoss, contextLoss := bufs[0], bufs[1]
		userLoss, posLoss, negLoss := bufs[2], bufs[3], bufs[4]

		// neighborhood fits the walk neighbours of center as its contexts.
		neighborhood := func(rng *rand.Rand, center int, table *embedding.Store, alpha float64) {
			for _, nb := range neighbors.DrawWalk(rng, center, cfg.WalkSteps) {
				optimizer.LogLikelihoodLoss(store.Vector(center), table.Vector(nb), 1, centerLoss, contextLoss)
				table.UpdateWithL2(nb, contextLoss, alpha, cfg.L2Reg)
				clear(contextLoss)
				for j := 0; j < cfg.NumNegative; j++ {
					nb = neighbors.DrawNegative(rng)
					optimizer.LogLikelihoodLoss(store.Vector(center), table.Vector(nb), 0, centerLoss, contextLoss)
					table.UpdateWithL2(nb, contextLoss, alpha, cfg.L2Reg)
					clear(contextLoss)
				}
				store.UpdateWithL2(center, centerLoss, alpha, cfg.L2Reg)
				clear(centerLoss)
			}
		}

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := uiSampler.DrawVertex(rng)
			item := uiSampler.DrawContext(rng, user)
			neighborhood(rng, item, itemContexts, alpha*cfg.Lambda)
			neighborhood(rng, user, userContexts, alpha*cfg.Lambda)

			if ranking {
				for trial := 0; trial < cseRankTrials; trial++ {
					neg := uiSampler.DrawContextUniformly(rng)
					if optimizer.MarginBPRLoss(store.Vector(user), store.Vector(item), store.Vector(neg), cfg.Margin, userLoss, posLoss, negLoss) {
						store.UpdateWithL2(item, posLoss, alpha, cfg.L2Reg)
						store.UpdateWithL2(neg, negLoss, alpha, cfg.L2Reg)
						store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
						clear(posLoss)
						clear(negLoss)
						clear(userLoss)
						break
					}
				}
				return
			}

			optimizer.LogLikelihoodLoss(store.Vector(user), store.Vector(item), 1, userLoss, posLoss)
			store.UpdateWithL2(item, posLoss, alpha, cfg.L2Reg)
			clear(posLoss)
			for j := 0; j < cfg.NumNegative; j++ {
				item = uiSampler.DrawContextUniformly(rng)
				optimizer.LogLikelihoodLoss(store.Vector(user), store.Vector(item), 0, userLoss, posLoss)
				store.UpdateWithL2(item, posLoss, alpha, cfg.L2Reg)
				clear(posLoss)
			}
			store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
			clear(userLoss)
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}
	return s.save(store, ui)
}
