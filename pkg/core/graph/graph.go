// Package graph ingests tab-separated edge lists into a weighted adjacency structure
// over dense integer vertex indices.
//
// Each input line has the shape "<from-label>\t<to-label>\t<weight>". Labels are
// interned through a fixed-capacity stringindex.Index in first-seen order, so the
// index of a vertex is stable for the lifetime of the Graph. A Graph can inherit the
// label universe of another graph, which keeps indices compatible when several graphs
// are trained jointly into a single embedding store.
//
// A Graph is built once by a single goroutine and is read-only afterwards.
package graph

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sanonone/kektorgraph/pkg/core/stringindex"
	"github.com/sanonone/kektorgraph/pkg/metrics"
	"github.com/tidwall/btree"
)

const (
	// progressEvery is the number of lines between two progress log records.
	progressEvery = 1_000_000

	maxLineSize = 64 * 1024 * 1024
)

// Edge is an outgoing, weighted connection of a vertex.
type Edge struct {
	To     int
	Weight float64
}

// Options controls how an edge list is turned into a Graph.
type Options struct {
	// Undirected mirrors every edge (a,b,w) into (b,a,w).
	Undirected bool
	// Capacity is the slot count of the label hash table. 0 selects the default.
	Capacity int
	// Name labels the graph in logs and metrics.
	Name string
}

// Graph is a weighted adjacency structure keyed by dense vertex indices.
type Graph struct {
	opts  Options
	index *stringindex.Index

	// adj holds the out-edges of each vertex in insertion order.
	adj [][]Edge
	// pos maps (from, to) to the position of the edge inside adj[from],
	// so duplicate lines overwrite the weight instead of appending.
	pos []map[int]int

	lines   int64
	skipped int64
}

func newGraph(opts Options) *Graph {
	if opts.Name == "" {
		opts.Name = "default"
	}
	return &Graph{
		opts:  opts,
		index: stringindex.New(opts.Capacity),
	}
}

// Load reads an edge list from path, which may name a single file or a directory.
// For a directory every regular file it contains is read, in name order, as one
// concatenated source. An unreadable path is reported as an error and no Graph is
// returned.
func Load(path string, opts Options) (*Graph, error) {
	return LoadWithLabels(path, opts, nil)
}

// LoadWithLabels is like Load but first inherits an existing label universe:
// labels[i] is pre-assigned index i, so vertices shared with the graph that produced
// labels keep the same index.
func LoadWithLabels(path string, opts Options, labels []string) (*Graph, error) {
	files, err := listFiles(path)
	if err != nil {
		return nil, err
	}

	g := newGraph(opts)
	if err := g.inherit(labels); err != nil {
		return nil, err
	}

	slog.Info("[Graph] Loading edge list", "graph", g.opts.Name, "path", path, "files", len(files), "undirected", opts.Undirected)
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", name, err)
		}
		err = g.ingest(f, name)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	g.finish()
	return g, nil
}

// LoadReader ingests an edge list from an already opened stream.
func LoadReader(r io.Reader, opts Options) (*Graph, error) {
	g := newGraph(opts)
	if err := g.ingest(r, g.opts.Name); err != nil {
		return nil, err
	}
	g.finish()
	return g, nil
}

// LoadReaderWithLabels is LoadReader with an inherited label universe.
func LoadReaderWithLabels(r io.Reader, opts Options, labels []string) (*Graph, error) {
	g := newGraph(opts)
	if err := g.inherit(labels); err != nil {
		return nil, err
	}
	if err := g.ingest(r, g.opts.Name); err != nil {
		return nil, err
	}
	g.finish()
	return g, nil
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", path, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (g *Graph) inherit(labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	slog.Info("[Graph] Inheriting label universe", "graph", g.opts.Name, "labels", len(labels))
	for _, label := range labels {
		if _, err := g.index.Insert(label); err != nil {
			return fmt.Errorf("inherit labels: %w", err)
		}
	}
	g.grow(g.index.Len())
	return nil
}

func (g *Graph) ingest(r io.Reader, source string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineNo int64
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		from, to, weight, ok := parseLine(line)
		if !ok {
			g.skipped++
			metrics.SkippedLines.WithLabelValues(g.opts.Name).Inc()
			slog.Warn("[Graph] Skipping malformed line", "graph", g.opts.Name, "source", source, "line", lineNo)
			continue
		}

		fromIdx, err := g.intern(from)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		toIdx, err := g.intern(to)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}

		g.setEdge(fromIdx, toIdx, weight)
		if g.opts.Undirected {
			g.setEdge(toIdx, fromIdx, weight)
		}
		g.lines++

		if g.lines%progressEvery == 0 {
			slog.Debug("[Graph] Loading progress", "graph", g.opts.Name, "lines", g.lines, "vertices", g.index.Len())
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	return nil
}

// parseLine splits "<from>\t<to>\t<weight>". Weights must be finite and non-negative.
func parseLine(line string) (string, string, float64, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 || fields[0] == "" || fields[1] == "" {
		return "", "", 0, false
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return "", "", 0, false
	}
	return fields[0], fields[1], weight, true
}

func (g *Graph) intern(label string) (int, error) {
	idx, _, err := g.index.Intern(label)
	if err != nil {
		return stringindex.NotFound, err
	}
	g.grow(idx + 1)
	return idx, nil
}

func (g *Graph) grow(n int) {
	for len(g.adj) < n {
		g.adj = append(g.adj, nil)
		g.pos = append(g.pos, nil)
	}
}

// setEdge records from->to with weight; a repeated pair keeps the last weight.
func (g *Graph) setEdge(from, to int, weight float64) {
	if g.pos[from] == nil {
		g.pos[from] = make(map[int]int)
	}
	if p, ok := g.pos[from][to]; ok {
		g.adj[from][p].Weight = weight
		return
	}
	g.pos[from][to] = len(g.adj[from])
	g.adj[from] = append(g.adj[from], Edge{To: to, Weight: weight})
}

func (g *Graph) finish() {
	g.grow(g.index.Len())
	metrics.GraphVertices.WithLabelValues(g.opts.Name).Set(float64(g.index.Len()))
	metrics.GraphEdges.WithLabelValues(g.opts.Name).Set(float64(g.lines))
	slog.Info("[Graph] Loaded",
		"graph", g.opts.Name,
		"vertices", g.index.Len(),
		"lines", g.lines,
		"skipped", g.skipped,
	)
}

// Name returns the graph name used in logs and metrics.
func (g *Graph) Name() string { return g.opts.Name }

// Undirected reports whether edges were mirrored on load.
func (g *Graph) Undirected() bool { return g.opts.Undirected }

// VertexCount returns the size of the label universe, inherited labels included.
func (g *Graph) VertexCount() int { return g.index.Len() }

// LineCount returns the number of edge lines accepted.
func (g *Graph) LineCount() int64 { return g.lines }

// SkippedCount returns the number of malformed lines dropped.
func (g *Graph) SkippedCount() int64 { return g.skipped }

// EdgeCount returns the number of stored adjacency entries (mirrors included).
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adj {
		n += len(edges)
	}
	return n
}

// Label returns the label of vertex v.
func (g *Graph) Label(v int) string { return g.index.Label(v) }

// Labels returns the label universe in index order. The slice must not be modified.
func (g *Graph) Labels() []string { return g.index.Labels() }

// Index returns the index of label or stringindex.NotFound.
func (g *Graph) Index(label string) int { return g.index.Search(label) }

// Edges returns the out-edges of v in insertion order. The slice must not be modified.
func (g *Graph) Edges(v int) []Edge { return g.adj[v] }

// OutDegree returns the number of distinct out-neighbours of v.
func (g *Graph) OutDegree(v int) int { return len(g.adj[v]) }

// Weight returns the weight of from->to.
func (g *Graph) Weight(from, to int) (float64, bool) {
	if from < 0 || from >= len(g.pos) || g.pos[from] == nil {
		return 0, false
	}
	p, ok := g.pos[from][to]
	if !ok {
		return 0, false
	}
	return g.adj[from][p].Weight, true
}

// AllNodes returns every vertex that appears on either side of an edge, ascending.
func (g *Graph) AllNodes() []int {
	var set btree.Set[int]
	for from, edges := range g.adj {
		if len(edges) == 0 {
			continue
		}
		set.Insert(from)
		for _, e := range edges {
			set.Insert(e.To)
		}
	}
	return setKeys(&set)
}

// FromNodes returns every vertex with at least one out-edge, ascending.
func (g *Graph) FromNodes() []int {
	nodes := make([]int, 0, len(g.adj))
	for from, edges := range g.adj {
		if len(edges) > 0 {
			nodes = append(nodes, from)
		}
	}
	return nodes
}

// ToNodes returns every vertex with at least one in-edge, ascending.
func (g *Graph) ToNodes() []int {
	var set btree.Set[int]
	for _, edges := range g.adj {
		for _, e := range edges {
			set.Insert(e.To)
		}
	}
	return setKeys(&set)
}

func setKeys(set *btree.Set[int]) []int {
	keys := make([]int, 0, set.Len())
	set.Scan(func(v int) bool {
		keys = append(keys, v)
		return true
	})
	return keys
}
