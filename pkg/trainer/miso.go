package trainer

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/bitset"
	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/core/sampler"
)

// trainMISO ranks items for users where every side is a composed vector: a user
// is blended with one of its items, an item with one of its sampled words (see
// embedding.Store.TextGCN). The margin-BPR gradient of a composed item is applied
// to every vertex it was composed from.
func trainMISO(s *session) error {
	cfg := s.cfg
	ui, err := s.loadGraph(cfg.Train, "user_item", cfg.Undirected)
	if err != nil {
		return err
	}
	iw, err := s.loadGraphWithLabels(cfg.TrainSecondary, "item_word", false, ui.Labels())
	if err != nil {
		return err
	}
	uiSampler, err := sampler.NewVertexContext(ui)
	if err != nil {
		return err
	}
	iwSampler, err := sampler.NewVertexContext(iw)
	if err != nil {
		return err
	}
	store, err := s.openStore(iw.VertexCount(), iw.Index)
	if err != nil {
		return err
	}

	sched := s.schedule(cfg.TotalUpdates())
	err = sched.run(cfg.Workers, cfg.Seed, func(int) workerFunc {
		bufs := lossBuffers(6, cfg.Dimension)
		userVec, posVec, negVec := bufs[0], bufs[1], bufs[2]
		userLoss, posLoss, negLoss := bufs[3], bufs[4], bufs[5]
		var userSet, posSet, negSet []int

		return func(rng *rand.Rand, _ uint64, alpha float64) {
			user := uiSampler.DrawVertex(rng)
			given := uiSampler.DrawContext(rng, user)
			userSet = append(userSet[:0], user, given)
			store.TextGCN(userVec, userSet)

			for j := 0; j < cfg.NumNegative; j++ {
				pos := uiSampler.DrawContext(rng, user)
				posSet = iwSampler.FeedSampledContexts(rng, pos, 1, append(posSet[:0], pos))
				store.TextGCN(posVec, posSet)

				neg := uiSampler.DrawContextUniformly(rng)
				negSet = iwSampler.FeedSampledContexts(rng, neg, 1, append(negSet[:0], neg))
				store.TextGCN(negVec, negSet)

				optimizer.MarginBPRLoss(userVec, posVec, negVec, cfg.Margin, userLoss, posLoss, negLoss)
				for _, v := range posSet {
					store.UpdateWithL2(v, posLoss, alpha, cfg.L2Reg)
				}
				for _, v := range negSet {
					store.UpdateWithL2(v, negLoss, alpha, cfg.L2Reg)
				}
				clear(posLoss)
				clear(negLoss)
			}
			store.UpdateWithL2(user, userLoss, alpha, cfg.L2Reg)
			store.UpdateWithL2(given, userLoss, alpha, cfg.L2Reg)
			clear(userLoss)
		}
	})
	if err != nil {
		s.closeStore(store)
		return err
	}

	// Users and items are written composed with their neighbours, words as is.
	items := bitset.New(iw.VertexCount())
	for _, v := range ui.ToNodes() {
		items.Add(v)
	}
	for _, v := range iw.FromNodes() {
		items.Add(v)
	}
	return s.saveWith(store, iw.Labels(), func() error {
		if err := store.SaveGraphConvolution(cfg.Save, ui, ui.FromNodes(), false); err != nil {
			return err
		}
		if err := store.SaveGraphConvolution(cfg.Save, iw, items.Members(), true); err != nil {
			return err
		}
		return store.SaveSubset(cfg.Save, iw, iw.ToNodes(), true)
	})
}
