package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conceptrag/core/internal/store"
)

// ListResources returns the resources the server exposes outside the tool
// surface: one entry per catalog document (chunk:// lets a client read a
// document's full concatenated chunk text without going through search).
func (s *Server) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	docs, err := s.documents.FilterQuery(ctx, nil, noLimit)
	if err != nil {
		return nil, err
	}

	resources := make([]mcp.Resource, 0, len(docs))
	for _, d := range docs {
		resources = append(resources, mcp.Resource{
			Name:        d.Title,
			URI:         fmt.Sprintf("chunk://%d", d.ID),
			Description: d.Summary,
			MIMEType:    "text/plain",
		})
	}
	return resources, nil
}

// ReadResource reads a resource by URI. Only the chunk:// scheme is
// supported; a document's chunks are concatenated in chunk-id order.
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, "chunk://") {
		return nil, NewResourceNotFoundError(uri)
	}

	idStr := strings.TrimPrefix(uri, "chunk://")
	catalogID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid chunk:// uri: %s", uri))
	}

	chunks, err := s.chunks.FilterQuery(ctx, store.FilterSet{store.Eq("catalog_id", catalogID)}, noLimit)
	if err != nil {
		return nil, MapError(err)
	}
	if len(chunks) == 0 {
		return nil, NewResourceNotFoundError(uri)
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/plain", Text: strings.Join(texts, "\n\n")},
		},
	}, nil
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("resource %q not found", uri)}
}

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	QueryTypeCounts     map[string]int64    `json:"query_type_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	TimePeriod    string  `json:"time_period"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         "conceptrag://query_metrics",
			Description: "Query pattern telemetry for search optimization",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

// makeQueryMetricsHandler creates a handler for the query_metrics resource.
func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewInvalidParamsError("query metrics not available")
		}

		snapshot := metrics.Snapshot()

		output := QueryMetricsOutput{
			Summary: QueryMetricsSummary{
				TotalQueries:  snapshot.TotalQueries,
				TimePeriod:    "session",
				ZeroResultPct: snapshot.ZeroResultPercentage(),
			},
			QueryTypeCounts:     make(map[string]int64),
			TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
			ZeroResultQueries:   snapshot.ZeroResultQueries,
			LatencyDistribution: make(map[string]int64),
		}

		for qt, count := range snapshot.QueryTypeCounts {
			output.QueryTypeCounts[string(qt)] = count
		}
		for _, tc := range snapshot.TopTerms {
			output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
		}
		for bucket, count := range snapshot.LatencyDistribution {
			output.LatencyDistribution[string(bucket)] = count
		}

		content, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: "conceptrag://query_metrics", MIMEType: "application/json", Text: string(content)},
			},
		}, nil
	}
}
