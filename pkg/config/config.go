// Package config holds the training configuration shared by the CLI and the
// trainer. Values come from built-in per-algorithm defaults, optionally
// overlaid by a YAML file, then by command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Algorithm names accepted in Config.Algorithm.
const (
	DeepWalk = "deepwalk"
	MF       = "mf"
	BPR      = "bpr"
	HopRec   = "hoprec"
	TransRec = "transrec"
	SkewOpt  = "skewopt"
	KGCF     = "kgcf"

	HPE        = "hpe"
	CSE        = "cse"
	I2I        = "i2i"
	MISO       = "miso"
	TransRecEx = "transrec-ex"
)

// Algorithms lists every supported algorithm.
var Algorithms = []string{DeepWalk, MF, BPR, HopRec, TransRec, SkewOpt, KGCF, HPE, CSE, I2I, MISO, TransRecEx}

// needsSecondary reports whether the algorithm trains on a second graph.
func needsSecondary(algorithm string) bool {
	return algorithm == KGCF || algorithm == MISO || algorithm == TransRecEx
}

// Duration is a time.Duration that decodes from YAML strings such as "30s".
type Duration time.Duration

// UnmarshalYAML accepts both a duration string and an integer nanosecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration at line %d", value.Line)
	}
	tmp, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(tmp)
	return nil
}

// MarshalYAML serializes the duration back to a readable string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the full set of training parameters.
type Config struct {
	// Input / output
	Train          string `yaml:"train"`
	TrainSecondary string `yaml:"train_secondary"` // item-side graph (kgcf, miso, transrec-ex)
	Save           string `yaml:"save"`
	SaveMode       string `yaml:"save_mode"` // plain | translational | gcn

	Algorithm  string `yaml:"algorithm"`
	Undirected bool   `yaml:"undirected"`
	Capacity   int    `yaml:"capacity"`

	// Model
	Dimension   int     `yaml:"dimension"`
	NumNegative int     `yaml:"num_negative"`
	InitAlpha   float64 `yaml:"init_alpha"`
	L2Reg       float64 `yaml:"l2_reg"`
	UserReg     float64 `yaml:"user_reg"`
	ItemReg     float64 `yaml:"item_reg"`
	Margin      float64 `yaml:"margin"`
	Location    float64 `yaml:"location"`
	Scale       float64 `yaml:"scale"`
	NumHop      int     `yaml:"num_hop"`
	UseKG       bool    `yaml:"use_kg"`
	Mode        string  `yaml:"mode"`   // transrec, cse: loglikelihood | bpr
	Lambda      float64 `yaml:"lambda"` // cse: neighbourhood learning-rate ratio

	// Walks
	WalkTimes  int `yaml:"walk_times"`
	WalkLength int `yaml:"walk_length"`
	WindowSize int `yaml:"window_size"`
	WalkSteps  int `yaml:"walk_steps"` // hpe, cse: hops per neighbourhood walk

	// Budget
	UpdateTimes  float64 `yaml:"update_times"` // millions of updates
	Workers      int     `yaml:"workers"`
	ReportPeriod int     `yaml:"report_period"`
	Seed         uint64  `yaml:"seed"`

	// Storage
	MappedPath         string   `yaml:"mapped_path"`
	CheckpointInterval Duration `yaml:"checkpoint_interval"`
	SnapshotPath       string   `yaml:"snapshot_path"`
	SnapshotPrecision  string   `yaml:"snapshot_precision"`
	WarmStart          string   `yaml:"warm_start"` // snapshot to load before training

	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns settings shared by every algorithm.
func DefaultConfig() Config {
	return Config{
		Save:     "graph.embed",
		SaveMode: "plain",

		Algorithm:  DeepWalk,
		Undirected: true,
		Capacity:   30_000_000,

		Dimension:   64,
		NumNegative: 5,
		InitAlpha:   0.025,
		L2Reg:       0.01,
		UserReg:     0.0001,
		ItemReg:     0.0001,
		Margin:      8.0,
		Location:    11.0,
		Scale:       3.0,
		NumHop:      2,
		UseKG:       true,
		Mode:        "loglikelihood",
		Lambda:      0.05,

		WalkTimes:  10,
		WalkLength: 40,
		WindowSize: 5,
		WalkSteps:  5,

		UpdateTimes:  10,
		Workers:      runtime.NumCPU(),
		ReportPeriod: 10_000,
		Seed:         1,

		CheckpointInterval: Duration(30 * time.Second),
		SnapshotPrecision:  "float32",
	}
}

// ForAlgorithm returns DefaultConfig tuned with the algorithm's own defaults.
func ForAlgorithm(name string) Config {
	cfg := DefaultConfig()
	cfg.Algorithm = name
	cfg.Save = name + ".embed"
	switch name {
	case MF:
		cfg.Undirected = false
	case BPR:
		cfg.Undirected = false
	case HopRec:
		cfg.Undirected = false
		cfg.InitAlpha = 0.01
		cfg.L2Reg = 0.025
		cfg.Margin = 1.0
	case TransRec:
		cfg.Undirected = false
		cfg.L2Reg = 0.0025
		cfg.SaveMode = "translational"
	case SkewOpt:
		cfg.Undirected = false
		cfg.NumNegative = 10
		cfg.InitAlpha = 0.01
		cfg.L2Reg = 0.025
	case KGCF, MISO:
		cfg.Undirected = false
		cfg.InitAlpha = 0.1
		cfg.L2Reg = 0.01
	case CSE:
		cfg.Undirected = false
		cfg.Margin = 1.0
		cfg.Mode = "bpr"
		cfg.WalkSteps = 2
	case I2I, TransRecEx:
		cfg.Undirected = false
		cfg.L2Reg = 0.0025
	}
	return cfg
}

// Load reads the YAML file at path over base using strict parsing: unknown keys
// are rejected. An empty path returns base unchanged.
func Load(path string, base Config) (Config, error) {
	cfg := base
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("YAML syntax error in config %s: %w", path, err)
	}
	return cfg, nil
}

// TotalUpdates converts UpdateTimes (millions) to an update count.
func (c Config) TotalUpdates() uint64 {
	if c.UpdateTimes <= 0 {
		return 0
	}
	return uint64(c.UpdateTimes * 1_000_000)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	known := false
	for _, a := range Algorithms {
		if c.Algorithm == a {
			known = true
			break
		}
	}
	switch {
	case !known:
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	case c.Train == "":
		return errors.New("train path is required")
	case needsSecondary(c.Algorithm) && c.TrainSecondary == "":
		return fmt.Errorf("%s requires train_secondary (item-side graph)", c.Algorithm)
	case c.Save == "":
		return errors.New("save path is required")
	case c.Dimension <= 0:
		return fmt.Errorf("dimension must be > 0, got %d", c.Dimension)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	case c.NumNegative < 0:
		return fmt.Errorf("num_negative must be >= 0, got %d", c.NumNegative)
	case c.InitAlpha <= 0:
		return fmt.Errorf("init_alpha must be > 0, got %g", c.InitAlpha)
	case c.ReportPeriod <= 0:
		return fmt.Errorf("report_period must be > 0, got %d", c.ReportPeriod)
	case c.Capacity < 0 || c.Capacity == 1:
		return fmt.Errorf("capacity must be 0 (default) or >= 2, got %d", c.Capacity)
	}

	if c.Algorithm == DeepWalk {
		if c.WalkTimes <= 0 || c.WindowSize <= 0 {
			return fmt.Errorf("walk_times and window_size must be > 0")
		}
		if c.WalkLength < 2 {
			return fmt.Errorf("walk_length must be >= 2, got %d", c.WalkLength)
		}
	} else if c.TotalUpdates() == 0 {
		return fmt.Errorf("update_times must be > 0, got %g", c.UpdateTimes)
	}
	if c.Algorithm == SkewOpt && c.Scale == 0 {
		return errors.New("scale must be non-zero")
	}
	if c.Algorithm == HopRec && c.NumHop <= 0 {
		return fmt.Errorf("num_hop must be > 0, got %d", c.NumHop)
	}
	if (c.Algorithm == HPE || c.Algorithm == CSE) && c.WalkSteps <= 0 {
		return fmt.Errorf("walk_steps must be > 0, got %d", c.WalkSteps)
	}
	switch c.SaveMode {
	case "plain", "translational", "gcn":
	default:
		return fmt.Errorf("unknown save_mode %q", c.SaveMode)
	}
	switch c.Mode {
	case "loglikelihood", "bpr":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.SnapshotPrecision {
	case "float32", "float16":
	default:
		return fmt.Errorf("unknown snapshot_precision %q", c.SnapshotPrecision)
	}
	return nil
}
