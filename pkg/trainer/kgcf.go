package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

const (
	// kgAlphaRatio scales the learning rate of item-knowledge updates.
	kgAlphaRatio = 0.15
	// kgMaxFailures bounds the search for a knowledge context reachable from the
	// user's neighbourhood before falling back to a uniform one.
	kgMaxFailures = 5
)

// trainKGCF jointly trains a user-item graph and an item-knowledge graph that
// share one label universe. Every BPR step on (user, pos, neg) is preceded by a
// BPR step pulling pos towards a knowledge entity reachable from the user's
// second-order neighbourhood.
func trainKGCF(s *session) error {
	cfg := s.cfg
	ui, err := s.loadGraph(cfg.Train, "user_item", false)
	if err != nil {
		return err
	}
	uiui, err := s.loadGraphWithLabels(cfg.Train, "user_item_undirected", true, ui.Labels())
	if err != nil {
		return err
	}
	ik, err := s.loadGraphWithLabels(cfg.TrainSecondary, "item_knowledge", false, ui.Labels())
	if err != nil {
		return err
	}

	uiSampler, err := sampler.NewVertexContext(ui)
	if err != nil {
		return err
	}
	walkSampler, err := sampler.NewVertexContext(uiui)
	if err != nil {
		return err
	}
	var kgSampler *sampler.VertexContext
	if cfg.UseKG {
		if kgSampler, err = sampler.NewVertexContext(ik); err != nil {
			return err
		}
	}

	store, err := s.openStore(ik.VertexCount(), ik.Index)
	if err != nil {
		return err
	}

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(3, cfg.Dimension)
		userLoss, itemLoss, kgLoss := bufs[0], bufs[1], bufs[2]

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := uiSampler.DrawVertex(rng)
			for j := 0; j < cfg.NumNegative; j++ {
				pos := uiSampler.DrawContext(rng, user)
				neg := uiSampler.DrawContextUniformly(rng)

				if kgSampler != nil {
					kgPos := sampler.NoSample
					for fail := 0; kgPos == sampler.NoSample; fail++ {
						item := walkSampler.DrawContext(rng, user)
						kgPos = kgSampler.DrawContextSafely(rng, item)
						if kgPos == sampler.NoSample && fail >= kgMaxFailures {
							kgPos = kgSampler.DrawContextUniformly(rng)
						}
					}
					kgNeg := kgSampler.DrawContextUniformly(rng)
					kgAlpha := alpha * kgAlphaRatio
					optimizer.BPRLoss(store.Vector(pos), store.Vector(kgPos), store.Vector(kgNeg), itemLoss, kgLoss)
					store.UpdateWithL2(pos, itemLoss, kgAlpha, cfg.L2Reg)
					store.UpdateWithL2(kgPos, kgLoss, kgAlpha, cfg.L2Reg)
					store.UpdateWithL2(kgNeg, kgLoss, -kgAlpha, -cfg.L2Reg)
					clear(itemLoss)
					clear(kgLoss)
				}

				optimizer.BPRLoss(store.Vector(user), store.Vector(pos), store.Vector(neg), userLoss, itemLoss)
				store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
				store.UpdateWithL2(pos, itemLoss, alpha, cfg.L2Reg)
				store.UpdateWithL2(neg, itemLoss, -alpha, -cfg.L2Reg)
				clear(userLoss)
				clear(itemLoss)
			}
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}

	// User-item vertices first, then the entities only the knowledge graph knows.
	return s.saveWith(store, ik.Labels(), func() error {
		if err := store.SaveSubset(cfg.Save, ui, ui.AllNodes(), false); err != nil {
			return err
		}
		if ik.VertexCount() == ui.VertexCount() {
			return nil
		}
		return store.SaveSubset(cfg.Save, ik, vertexRange(ui.VertexCount(), ik.VertexCount()), true)
	})
}
