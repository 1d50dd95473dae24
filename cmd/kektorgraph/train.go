package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sanonone/kektorgraph/pkg/config"
	"github.com/sanonone/kektorgraph/pkg/core/optimizer"
	"github.com/sanonone/kektorgraph/pkg/trainer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var trainDescriptions = map[string]string{
	config.DeepWalk: "Skip-gram with negative sampling over truncated random walks",
	config.MF:       "Implicit matrix factorisation on observed edges",
	config.BPR:      "Bayesian personalised ranking with a margin gate",
	config.HopRec:   "Ranking over higher-order neighbours reached by random walks",
	config.TransRec: "Translation-based sequential recommendation",
	config.SkewOpt:  "Ranking driven by the skew-normal gradient kernel",
	config.KGCF:     "Collaborative filtering regularised by an item-knowledge graph",

	config.HPE:        "Vertex and context vectors fitted to short random-walk neighbourhoods",
	config.CSE:        "User-item preference joined with user and item neighbourhood modelling",
	config.I2I:        "Item-given-item translations among the items of one user",
	config.MISO:       "Margin ranking of items composed with their sampled words",
	config.TransRecEx: "Translation-based recommendation extended through an item-meta graph",
}

func init() {
	for _, alg := range config.Algorithms {
		rootCmd.AddCommand(newTrainCmd(alg))
	}
}

// newTrainCmd builds the subcommand that trains alg. Values are resolved in
// order: algorithm defaults, then --config, then explicitly set flags.
func newTrainCmd(alg string) *cobra.Command {
	scratch := config.ForAlgorithm(alg)
	cmd := &cobra.Command{
		Use:   alg,
		Short: trainDescriptions[alg],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, alg)
			if err != nil {
				return err
			}
			return runTraining(cfg)
		},
	}
	bindFlags(cmd.Flags(), &scratch, alg)
	return cmd
}

// resolveConfig overlays the explicitly set flags of cmd on the algorithm
// defaults and the optional YAML file.
func resolveConfig(cmd *cobra.Command, alg string) (config.Config, error) {
	cfg, err := config.Load(configPath, config.ForAlgorithm(alg))
	if err != nil {
		return cfg, err
	}
	cfg.Algorithm = alg

	overlay := pflag.NewFlagSet(alg, pflag.ContinueOnError)
	bindFlags(overlay, &cfg, alg)

	var setErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if setErr != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return cfg, setErr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg, nil
}

func runTraining(cfg config.Config) error {
	startMetrics(cfg.MetricsAddr)
	slog.Info("[Main] Starting", "algorithm", cfg.Algorithm, "train", cfg.Train, "vector_ops", optimizer.Implementation())

	res, err := trainer.Run(cfg)
	if err != nil {
		slog.Error("[Main] Training failed", "error", err)
		return err
	}
	slog.Info("[Main] Done",
		"run_id", res.RunID.String(),
		"vertices", res.Vertices,
		"updates", res.Updates,
		"output", res.Output,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return nil
}

// bindFlags registers the flags relevant to alg on fs, storing into cfg.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config, alg string) {
	fs.StringVar(&cfg.Train, "train", cfg.Train, "Edge list file or directory")
	fs.StringVar(&cfg.Save, "save", cfg.Save, "Text embedding output path")
	fs.StringVar(&cfg.SaveMode, "save-mode", cfg.SaveMode, "Output mode (plain, translational, gcn)")
	fs.BoolVar(&cfg.Undirected, "undirected", cfg.Undirected, "Mirror every edge")
	fs.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Label table slots; at most 90% hold vertices, so size it above the vertex count")

	fs.IntVar(&cfg.Dimension, "dimension", cfg.Dimension, "Embedding dimension")
	fs.IntVar(&cfg.NumNegative, "num-negative", cfg.NumNegative, "Negative samples per positive")
	fs.Float64Var(&cfg.InitAlpha, "init-alpha", cfg.InitAlpha, "Initial learning rate")
	fs.Float64Var(&cfg.L2Reg, "l2-reg", cfg.L2Reg, "L2 regularisation")

	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of training goroutines")
	fs.IntVar(&cfg.ReportPeriod, "report-period", cfg.ReportPeriod, "Updates between learning rate refreshes")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")

	fs.StringVar(&cfg.MappedPath, "mapped-path", cfg.MappedPath, "Keep the embedding table in this memory-mapped file")
	fs.DurationVar((*time.Duration)(&cfg.CheckpointInterval), "checkpoint-interval", time.Duration(cfg.CheckpointInterval), "Flush interval of the mapped table")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "Also write a binary snapshot to this path")
	fs.StringVar(&cfg.SnapshotPrecision, "snapshot-precision", cfg.SnapshotPrecision, "Snapshot precision (float32, float16)")
	fs.StringVar(&cfg.WarmStart, "warm-start", cfg.WarmStart, "Load vectors from this snapshot before training")

	if alg == config.DeepWalk {
		fs.IntVar(&cfg.WalkTimes, "walk-times", cfg.WalkTimes, "Walks rooted at every vertex")
		fs.IntVar(&cfg.WalkLength, "walk-length", cfg.WalkLength, "Vertices per walk including the root (walk-length - 1 hops)")
		fs.IntVar(&cfg.WindowSize, "window-size", cfg.WindowSize, "Maximum skip-gram window")
	} else {
		fs.Float64Var(&cfg.UpdateTimes, "update-times", cfg.UpdateTimes, "Update budget in millions")
	}

	switch alg {
	case config.BPR:
		fs.Float64Var(&cfg.UserReg, "user-reg", cfg.UserReg, "L2 regularisation of user vectors")
		fs.Float64Var(&cfg.ItemReg, "item-reg", cfg.ItemReg, "L2 regularisation of item vectors")
		fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "Ranking margin")
	case config.HopRec:
		fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "Ranking margin at the first hop")
		fs.IntVar(&cfg.NumHop, "num-hop", cfg.NumHop, "Maximum hop distance of positives")
	case config.TransRec:
		fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Loss (loglikelihood, bpr)")
	case config.TransRecEx:
		fs.StringVar(&cfg.TrainSecondary, "train-secondary", cfg.TrainSecondary, "Item-meta edge list")
		fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Loss (loglikelihood, bpr)")
	case config.HPE:
		fs.IntVar(&cfg.WalkSteps, "walk-steps", cfg.WalkSteps, "Hops per walk")
	case config.CSE:
		fs.IntVar(&cfg.WalkSteps, "walk-steps", cfg.WalkSteps, "Hops per neighbourhood walk")
		fs.Float64Var(&cfg.Lambda, "lambda", cfg.Lambda, "Learning rate ratio of neighbourhood modelling")
		fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "Ranking margin")
		fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "User-item loss (loglikelihood, bpr)")
	case config.MISO:
		fs.StringVar(&cfg.TrainSecondary, "train-secondary", cfg.TrainSecondary, "Item-word edge list")
		fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "Ranking margin")
	case config.SkewOpt:
		fs.Float64Var(&cfg.Location, "location", cfg.Location, "Skew kernel location")
		fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "Skew kernel scale")
	case config.KGCF:
		fs.StringVar(&cfg.TrainSecondary, "train-secondary", cfg.TrainSecondary, "Item-knowledge edge list")
		fs.BoolVar(&cfg.UseKG, "use-kg", cfg.UseKG, "Train with knowledge-graph steps")
	}
}
