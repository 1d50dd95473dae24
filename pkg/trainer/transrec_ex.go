package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// transPhase selects, for one round of a TransRec-ex step, whether the relation
// and the target are items of the user or meta entities reached from them.
type transPhase struct {
	relMeta    bool
	targetMeta bool
}

var (
	transExLikelihoodPhases = []transPhase{{false, false}, {false, true}, {true, true}, {true, false}}
	transExRankingPhases    = []transPhase{{false, false}, {false, true}, {true, false}, {true, true}}
)

// trainTransRecEx is TransRec over a user-item graph and an item-meta graph
// sharing one label universe. Each step runs four rounds for one user, covering
// every combination of item or meta relation with item or meta target. A meta
// side is reached by one hop from an item of the user and the round is skipped
// when that item has no meta edges. Negatives are drawn uniformly from the same
// side as the target.
func trainTransRecEx(s *session) error {
	cfg := s.cfg
	ui, err := s.loadGraph(cfg.Train, "user_item", cfg.Undirected)
	if err != nil {
		return err
	}
	meta, err := s.loadGraphWithLabels(cfg.TrainSecondary, "item_meta", false, ui.Labels())
	if err != nil {
		return err
	}
	uiSampler, err := sampler.NewVertexContext(ui)
	if err != nil {
		return err
	}
	metaSampler, err := sampler.NewVertexContext(meta)
	if err != nil {
		return err
	}
	store, err := s.openStore(meta.VertexCount(), meta.Index)
	if err != nil {
		return err
	}

	// draw returns an item of user, or a meta entity one hop from it.
	draw := func(rng *rand.Rand, user int, viaMeta bool) int {
		item := uiSampler.DrawContext(rng, user)
		if !viaMeta {
			return item
		}
		return metaSampler.DrawContextSafely(rng, item)
	}
	uniform := func(rng *rand.Rand, viaMeta bool) int {
		if viaMeta {
			return metaSampler.DrawContextUniformly(rng)
		}
		return uiSampler.DrawContextUniformly(rng)
	}

	newWorker := func(int) workerFunc {
		bufs := lossBuffers(3, cfg.Dimension)
		userLoss, relLoss, targetLoss := bufs[0], bufs[1], bufs[2]

		fit := func(user, rel, target int, label, alpha float64) {
			optimizer.TransLoss(store.Vector(user), store.Vector(rel), store.Vector(target), label, userLoss, relLoss, targetLoss)
			store.UpdateWithL2(rel, relLoss, alpha, cfg.L2Reg)
			store.UpdateWithL2(target, targetLoss, alpha, cfg.L2Reg)
			clear(relLoss)
			clear(targetLoss)
		}

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := uiSampler.DrawVertex(rng)
			for _, p := range transExLikelihoodPhases {
				rel := draw(rng, user, p.relMeta)
				target := draw(rng, user, p.targetMeta)
				if rel != sampler.NoSample && target != sampler.NoSample {
					fit(user, rel, target, 1, alpha)
				}
				for j := 0; j < cfg.NumNegative; j++ {
					if rel = draw(rng, user, p.relMeta); rel == sampler.NoSample {
						continue
					}
					fit(user, rel, uniform(rng, p.targetMeta), 0, alpha)
				}
				store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
				clear(userLoss)
			}
		}
	}

	if cfg.Mode == "bpr" {
		newWorker = func(int) workerFunc {
			bufs := lossBuffers(4, cfg.Dimension)
			userLoss, relLoss, posLoss, negLoss := bufs[0], bufs[1], bufs[2], bufs[3]

			return func(rng *rand.Rand, _ uint64, alpha float64) {
				user := uiSampler.DrawVertex(rng)
				for _, p := range transExRankingPhases {
					for j := 0; j < cfg.NumNegative; j++ {
						rel := draw(rng, user, p.relMeta)
						pos := draw(rng, user, p.targetMeta)
						if rel == sampler.NoSample || pos == sampler.NoSample {
							continue
						}
						neg := uniform(rng, p.targetMeta)
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
	}

	sched := s.schedule(cfg.TotalUpdates())
	if err := sched.run(cfg.Workers, cfg.Seed, newWorker); err != nil {
		s.closeStore(store)
		return err
	}

	// User-item vertices first, then the meta entities.
	return s.saveWith(store, meta.Labels(), func() error {
		if err := store.SaveSubset(cfg.Save, ui, ui.AllNodes(), false); err != nil {
			return err
		}
		if meta.VertexCount() == ui.VertexCount() {
			return nil
		}
		return store.SaveSubset(cfg.Save, meta, vertexRange(ui.VertexCount(), meta.VertexCount()), true)
	})
}
