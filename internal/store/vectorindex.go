package store

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// VectorIndexConfig configures an HNSW index shared across all four
// collections instead of one chunk index.
type VectorIndexConfig struct {
	Dimensions int
	Metric     string // "cos" or "l2"
	M          int
	EfSearch   int
}

// DefaultVectorIndexConfig returns the default HNSW tuning.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// vectorIndexMeta is the persisted sidecar: domain ids are already uint64,
// so there is no string id map to persist — only the tombstone set and
// config survive a reload.
type vectorIndexMeta struct {
	Deleted map[uint64]bool
	Config  VectorIndexConfig
}

// VectorIndex wraps coder/hnsw keyed directly on domain uint64 ids. A
// store keying on SHA256 hex chunk ids would need an idMap/keyMap
// indirection layer; this system's ids are already 64-bit integers derived
// deterministically, so that layer drops out and the graph node key IS the
// domain id.
type VectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	config  VectorIndexConfig
	deleted map[uint64]bool // lazy-delete tombstones; see Delete
	closed  bool
}

func NewVectorIndex(cfg VectorIndexConfig) *VectorIndex {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &VectorIndex{
		graph:   graph,
		config:  cfg,
		deleted: make(map[uint64]bool),
	}
}

// Upsert inserts or replaces vectors keyed by domain id. Replacing an
// existing id clears its tombstone and re-adds the node under the same key,
// leaving the replacement to graph.Add.
func (idx *VectorIndex) Upsert(ids []uint64, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, v := range vectors {
		if len(v) != idx.config.Dimensions {
			return ErrDimensionMismatch{Expected: idx.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		delete(idx.deleted, id) // un-tombstone on reinsert

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if idx.config.Metric == "cos" {
			normalizeVectorInPlace(vec)
		}
		idx.graph.Add(hnsw.MakeNode(id, vec))
	}
	return nil
}

// Search returns the k nearest neighbors to query, skipping tombstoned ids.
func (idx *VectorIndex) Search(query []float32, k int) ([]VectorRow[uint64], error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(query) != idx.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: idx.config.Dimensions, Got: len(query)}
	}
	if idx.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if idx.config.Metric == "cos" {
		normalizeVectorInPlace(q)
	}

	// Over-fetch past tombstones so a search still returns k live results.
	fetch := k
	if len(idx.deleted) > 0 {
		fetch = k + len(idx.deleted)
	}
	nodes := idx.graph.Search(q, fetch)

	rows := make([]VectorRow[uint64], 0, k)
	for _, node := range nodes {
		if idx.deleted[node.Key] {
			continue
		}
		distance := idx.graph.Distance(q, node.Value)
		rows = append(rows, VectorRow[uint64]{Item: node.Key, Distance: distance})
		if len(rows) >= k {
			break
		}
	}
	return rows, nil
}

// Delete tombstones ids rather than removing graph nodes, working around
// coder/hnsw's lack of node removal.
func (idx *VectorIndex) Delete(ids []uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		idx.deleted[id] = true
	}
}

func (idx *VectorIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len() - len(idx.deleted)
}

// Save persists the graph and tombstone/config sidecar via an atomic
// temp-file-then-rename, so a crash mid-write never leaves a corrupt index.
func (idx *VectorIndex) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := idx.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return idx.saveMeta(path + ".meta")
}

func (idx *VectorIndex) saveMeta(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	meta := vectorIndexMeta{Deleted: idx.deleted, Config: idx.config}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and sidecar from disk.
func (idx *VectorIndex) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := idx.loadMeta(path + ".meta"); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	if err := idx.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func (idx *VectorIndex) loadMeta(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer file.Close()

	var meta vectorIndexMeta
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	idx.deleted = meta.Deleted
	if idx.deleted == nil {
		idx.deleted = make(map[uint64]bool)
	}
	idx.config = meta.Config
	return nil
}

func (idx *VectorIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.graph = nil
	return nil
}

// ErrDimensionMismatch indicates an embedding of the wrong width was
// offered to a collection configured for a different dimension D.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts a distance value to a [0,1] similarity score,
// matching the data model's vector_score definition in §4.4.
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		score := 1.0 - distance/2.0
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		return score
	}
}
