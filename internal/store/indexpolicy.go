package store

// IndexPolicy is the storage abstraction's vector-index creation policy,
// consulted when a Postgres collection is opened (OpenOrCreate); the local
// HNSW backend does not use it. Below the row-count threshold a
// linear scan beats training a partitioned index on too little data; above
// it, partition the index so each partition holds a modest vector count.
type IndexPolicy struct {
	LinearScanThreshold int
	MinPerPartition     int
	MaxPerPartition     int
	MaxPartitions       int
}

func DefaultIndexPolicy() IndexPolicy {
	return IndexPolicy{
		LinearScanThreshold: 100_000,
		MinPerPartition:     100,
		MaxPerPartition:     200,
		MaxPartitions:       256,
	}
}

// ShouldPartition reports whether a collection of this size has crossed the
// threshold where a partitioned index pays for itself.
func (p IndexPolicy) ShouldPartition(rowCount int) bool {
	return rowCount >= p.LinearScanThreshold
}

// Partitions sizes a partitioned index for rowCount, aiming for
// MaxPerPartition vectors per partition and clamping to MaxPartitions. The
// local (coder/hnsw) backend doesn't need this — HNSW's own graph structure
// already amortizes search cost without manual partitioning — but the
// Postgres backend uses it directly to size pgvector's ivfflat `lists`
// parameter once a collection crosses LinearScanThreshold.
func (p IndexPolicy) Partitions(rowCount int) int {
	if !p.ShouldPartition(rowCount) {
		return 0
	}
	lists := rowCount / p.MaxPerPartition
	if lists < 1 {
		lists = 1
	}
	if lists > p.MaxPartitions {
		lists = p.MaxPartitions
	}
	return lists
}
