// Package context assembles the retrieval context injected into drafting
// prompts: the best chunks for a query, deduplicated, trimmed to a token
// budget and put back into document order.
package context

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/contract"
	"ai-drafting-be/pkg/chunker"
	"ai-drafting-be/pkg/embedding"
	"ai-drafting-be/pkg/vectorindex"
)

const (
	// DefaultTokenBudget is the retrieval context ceiling, measured with the
	// same estimator the chunker uses.
	DefaultTokenBudget = 2000
	// DefaultTopK is how many candidates we pull before budgeting.
	DefaultTopK = 10
	// localSimilarityThreshold gates the pgvector fallback search.
	localSimilarityThreshold = 0.5

	queryCacheTTL = 5 * time.Minute
)

// VectorSearcher is the remote index surface the builder needs.
type VectorSearcher interface {
	Configured() bool
	QueryVectorMatches(ctx context.Context, q vectorindex.Query) ([]vectorindex.Match, error)
}

// ChunkStore resolves match ids back to stored chunk rows and provides the
// org-local similarity fallback.
type ChunkStore interface {
	FindBySourceAndIndex(ctx context.Context, sourceContentId uuid.UUID, chunkIndex int) (*entity.ContentChunk, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, organizationId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error)
}

// Scope bounds a retrieval to one organization and, optionally, a subset of
// its sources. TokenBudget overrides the builder default when positive.
type Scope struct {
	OrganizationID   uuid.UUID
	SourceContentIDs []uuid.UUID
	TokenBudget      int
}

// Passage is one selected chunk, ready for prompt assembly.
type Passage struct {
	ChunkID         uuid.UUID
	SourceContentID uuid.UUID
	ChunkIndex      int
	Text            string
	Score           float64
}

// RetrievedContext is the builder output. Passages are in document order
// (source id, then chunk index), not score order.
type RetrievedContext struct {
	Passages       []Passage
	TokenEstimate  int
	CandidateCount int
}

// Builder runs the retrieve-and-budget pipeline. Faults in the embedding or
// the index degrade to an empty context; drafting continues ungrounded rather
// than failing the request.
type Builder struct {
	provider   embedding.EmbeddingProvider
	index      VectorSearcher
	chunks     ChunkStore
	log        logger.ILogger
	queryCache *gocache.Cache

	TokenBudget int
	TopK        int
}

func NewBuilder(provider embedding.EmbeddingProvider, index VectorSearcher, chunks ChunkStore, log logger.ILogger) *Builder {
	return &Builder{
		provider:    provider,
		index:       index,
		chunks:      chunks,
		log:         log,
		queryCache:  gocache.New(queryCacheTTL, 2*queryCacheTTL),
		TokenBudget: DefaultTokenBudget,
		TopK:        DefaultTopK,
	}
}

// Build assembles the retrieval context for a query. It never returns an
// error: any upstream fault is logged and yields an empty context.
func (b *Builder) Build(ctx context.Context, query string, scope Scope) *RetrievedContext {
	ctx, span := otel.Tracer("rag/context").Start(ctx, "context.Build")
	defer span.End()

	result := &RetrievedContext{}
	if query == "" || scope.OrganizationID == uuid.Nil {
		return result
	}

	queryVector, err := b.embedQuery(ctx, query)
	if err != nil {
		b.log.Warn("rag.context", "query embedding failed, returning empty context", map[string]interface{}{
			"error": err.Error(),
		})
		return result
	}

	var candidates []Passage
	if b.index != nil && b.index.Configured() {
		candidates, err = b.remoteCandidates(ctx, queryVector, scope)
	} else {
		candidates, err = b.localCandidates(ctx, queryVector, scope)
	}
	if err != nil {
		b.log.Warn("rag.context", "candidate retrieval failed, returning empty context", map[string]interface{}{
			"error": err.Error(),
		})
		return result
	}

	result.CandidateCount = len(candidates)
	result.Passages, result.TokenEstimate = b.selectUnderBudget(candidates, scope.TokenBudget)

	span.SetAttributes(
		attribute.Int("candidates", result.CandidateCount),
		attribute.Int("selected", len(result.Passages)),
		attribute.Int("token_estimate", result.TokenEstimate),
	)
	return result
}

func (b *Builder) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if cached, ok := b.queryCache.Get(query); ok {
		return cached.([]float32), nil
	}
	vector, err := b.provider.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	b.queryCache.Set(query, vector, gocache.DefaultExpiration)
	return vector, nil
}

func (b *Builder) remoteCandidates(ctx context.Context, queryVector []float32, scope Scope) ([]Passage, error) {
	filter := map[string]string{"organizationId": scope.OrganizationID.String()}
	if len(scope.SourceContentIDs) == 1 {
		filter["sourceContentId"] = scope.SourceContentIDs[0].String()
	}

	matches, err := b.index.QueryVectorMatches(ctx, vectorindex.Query{
		Vector:         queryVector,
		TopK:           b.TopK,
		Filter:         filter,
		ReturnMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	allowed := make(map[uuid.UUID]bool, len(scope.SourceContentIDs))
	for _, id := range scope.SourceContentIDs {
		allowed[id] = true
	}

	var passages []Passage
	for _, m := range matches {
		sourceID, err := uuid.Parse(m.Metadata.SourceContentID)
		if err != nil {
			b.log.Warn("rag.context", "dropping match with bad source id", map[string]interface{}{
				"match_id": m.ID,
			})
			continue
		}
		if len(allowed) > 0 && !allowed[sourceID] {
			continue
		}

		chunk, err := b.chunks.FindBySourceAndIndex(ctx, sourceID, m.Metadata.ChunkIndex)
		if err != nil {
			b.log.Warn("rag.context", "chunk resolution failed for match", map[string]interface{}{
				"match_id": m.ID,
				"error":    err.Error(),
			})
			continue
		}
		if chunk == nil {
			// Stale vector: the source was re-chunked into fewer pieces and
			// this index slot no longer has a row. Skip it.
			continue
		}
		passages = append(passages, Passage{
			ChunkID:         chunk.Id,
			SourceContentID: chunk.SourceContentId,
			ChunkIndex:      chunk.ChunkIndex,
			Text:            chunk.Document,
			Score:           m.Score,
		})
	}
	return passages, nil
}

func (b *Builder) localCandidates(ctx context.Context, queryVector []float32, scope Scope) ([]Passage, error) {
	scored, err := b.chunks.SearchSimilarWithScore(ctx, queryVector, b.TopK, scope.OrganizationID, localSimilarityThreshold)
	if err != nil {
		return nil, err
	}

	allowed := make(map[uuid.UUID]bool, len(scope.SourceContentIDs))
	for _, id := range scope.SourceContentIDs {
		allowed[id] = true
	}

	var passages []Passage
	for _, s := range scored {
		if s.Chunk == nil {
			continue
		}
		if len(allowed) > 0 && !allowed[s.Chunk.SourceContentId] {
			continue
		}
		passages = append(passages, Passage{
			ChunkID:         s.Chunk.Id,
			SourceContentID: s.Chunk.SourceContentId,
			ChunkIndex:      s.Chunk.ChunkIndex,
			Text:            s.Chunk.Document,
			Score:           s.Similarity,
		})
	}
	return passages, nil
}

// selectUnderBudget ranks candidates by score, drops duplicates, greedily
// takes passages while the budget holds, then reorders the final selection
// into document order so adjacent chunks read naturally.
func (b *Builder) selectUnderBudget(candidates []Passage, budget int) ([]Passage, int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if budget <= 0 {
		budget = b.TokenBudget
	}
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	seen := make(map[uuid.UUID]bool)
	var selected []Passage
	used := 0
	for _, c := range candidates {
		if seen[c.ChunkID] {
			continue
		}
		cost := chunker.EstimateTokens(c.Text)
		if used+cost > budget {
			continue
		}
		seen[c.ChunkID] = true
		selected = append(selected, c)
		used += cost
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].SourceContentID != selected[j].SourceContentID {
			return selected[i].SourceContentID.String() < selected[j].SourceContentID.String()
		}
		return selected[i].ChunkIndex < selected[j].ChunkIndex
	})

	return selected, used
}
