package context

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/contract"
	"ai-drafting-be/pkg/vectorindex"
)

type fakeProvider struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	configured bool
	matches    []vectorindex.Match
	err        error
	lastQuery  vectorindex.Query
}

func (f *fakeIndex) Configured() bool { return f.configured }

func (f *fakeIndex) QueryVectorMatches(ctx context.Context, q vectorindex.Query) ([]vectorindex.Match, error) {
	f.lastQuery = q
	return f.matches, f.err
}

type fakeChunkStore struct {
	rows   map[string]*entity.ContentChunk // key sourceId:index
	scored []*contract.ScoredContentChunk
	err    error
}

func (f *fakeChunkStore) FindBySourceAndIndex(ctx context.Context, sourceId uuid.UUID, chunkIndex int) (*entity.ContentChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[vectorindex.RecordID(sourceId.String(), chunkIndex)], nil
}

func (f *fakeChunkStore) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, organizationId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scored, nil
}

var (
	orgID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	srcA   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	srcB   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	chunk0 = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	chunk1 = uuid.MustParse("55555555-5555-5555-5555-555555555555")
	chunk2 = uuid.MustParse("66666666-6666-6666-6666-666666666666")
)

func chunkRow(id, source uuid.UUID, index int, text string) *entity.ContentChunk {
	return &entity.ContentChunk{
		Id:              id,
		SourceContentId: source,
		ChunkIndex:      index,
		Document:        text,
	}
}

func match(source uuid.UUID, index int, score float64) vectorindex.Match {
	return vectorindex.Match{
		ID:    vectorindex.RecordID(source.String(), index),
		Score: score,
		Metadata: vectorindex.Metadata{
			OrganizationID:  orgID.String(),
			SourceContentID: source.String(),
			ChunkIndex:      index,
		},
	}
}

func TestBuildOrdersSelectionByDocument(t *testing.T) {
	store := &fakeChunkStore{rows: map[string]*entity.ContentChunk{
		vectorindex.RecordID(srcA.String(), 0): chunkRow(chunk0, srcA, 0, "first part"),
		vectorindex.RecordID(srcA.String(), 2): chunkRow(chunk1, srcA, 2, "later part"),
		vectorindex.RecordID(srcB.String(), 1): chunkRow(chunk2, srcB, 1, "other doc"),
	}}
	index := &fakeIndex{configured: true, matches: []vectorindex.Match{
		match(srcA, 2, 0.95), // best score, but later in the document
		match(srcB, 1, 0.90),
		match(srcA, 0, 0.85),
	}}

	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, store, logger.NewNopLogger())
	got := b.Build(context.Background(), "what happened first", Scope{OrganizationID: orgID})

	require.Len(t, got.Passages, 3)
	assert.Equal(t, 3, got.CandidateCount)
	// srcA sorts before srcB; within srcA, index order.
	assert.Equal(t, []int{0, 2, 1}, []int{got.Passages[0].ChunkIndex, got.Passages[1].ChunkIndex, got.Passages[2].ChunkIndex})
	assert.Equal(t, srcA, got.Passages[0].SourceContentID)
	assert.Equal(t, srcB, got.Passages[2].SourceContentID)

	assert.Equal(t, orgID.String(), index.lastQuery.Filter["organizationId"])
	assert.True(t, index.lastQuery.ReturnMetadata)
}

func TestBuildHonorsTokenBudget(t *testing.T) {
	big := strings.Repeat("x", 4*900)   // ~900 tokens
	small := strings.Repeat("y", 4*200) // ~200 tokens

	store := &fakeChunkStore{rows: map[string]*entity.ContentChunk{
		vectorindex.RecordID(srcA.String(), 0): chunkRow(chunk0, srcA, 0, big),
		vectorindex.RecordID(srcA.String(), 1): chunkRow(chunk1, srcA, 1, big),
		vectorindex.RecordID(srcA.String(), 2): chunkRow(chunk2, srcA, 2, small),
	}}
	index := &fakeIndex{configured: true, matches: []vectorindex.Match{
		match(srcA, 0, 0.9),
		match(srcA, 1, 0.8),
		match(srcA, 2, 0.7),
	}}

	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, store, logger.NewNopLogger())
	b.TokenBudget = 1200

	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	// First big chunk fits (900), second would blow the budget, small fits.
	require.Len(t, got.Passages, 2)
	assert.LessOrEqual(t, got.TokenEstimate, 1200)
	assert.Equal(t, 0, got.Passages[0].ChunkIndex)
	assert.Equal(t, 2, got.Passages[1].ChunkIndex)
}

func TestBuildDedupesByChunkId(t *testing.T) {
	store := &fakeChunkStore{rows: map[string]*entity.ContentChunk{
		vectorindex.RecordID(srcA.String(), 0): chunkRow(chunk0, srcA, 0, "text"),
	}}
	index := &fakeIndex{configured: true, matches: []vectorindex.Match{
		match(srcA, 0, 0.9),
		match(srcA, 0, 0.85), // duplicate slot
	}}

	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, store, logger.NewNopLogger())
	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	assert.Len(t, got.Passages, 1)
}

func TestBuildDropsStaleMatches(t *testing.T) {
	// Index still has slot 5 from before the source shrank to 1 chunk.
	store := &fakeChunkStore{rows: map[string]*entity.ContentChunk{
		vectorindex.RecordID(srcA.String(), 0): chunkRow(chunk0, srcA, 0, "kept"),
	}}
	index := &fakeIndex{configured: true, matches: []vectorindex.Match{
		match(srcA, 5, 0.95),
		match(srcA, 0, 0.80),
	}}

	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, store, logger.NewNopLogger())
	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	require.Len(t, got.Passages, 1)
	assert.Equal(t, "kept", got.Passages[0].Text)
}

func TestBuildScopeFiltersSources(t *testing.T) {
	store := &fakeChunkStore{rows: map[string]*entity.ContentChunk{
		vectorindex.RecordID(srcA.String(), 0): chunkRow(chunk0, srcA, 0, "in scope"),
		vectorindex.RecordID(srcB.String(), 0): chunkRow(chunk1, srcB, 0, "out of scope"),
	}}
	index := &fakeIndex{configured: true, matches: []vectorindex.Match{
		match(srcB, 0, 0.95),
		match(srcA, 0, 0.90),
	}}

	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, store, logger.NewNopLogger())
	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID, SourceContentIDs: []uuid.UUID{srcA}})

	require.Len(t, got.Passages, 1)
	assert.Equal(t, "in scope", got.Passages[0].Text)
	// A single allowed source is pushed down into the index filter.
	assert.Equal(t, srcA.String(), index.lastQuery.Filter["sourceContentId"])
}

func TestBuildEmptyOnEmbeddingFault(t *testing.T) {
	b := NewBuilder(&fakeProvider{err: errors.New("upstream down")}, &fakeIndex{configured: true}, &fakeChunkStore{}, logger.NewNopLogger())
	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	assert.Empty(t, got.Passages)
	assert.Zero(t, got.TokenEstimate)
}

func TestBuildEmptyOnIndexFault(t *testing.T) {
	index := &fakeIndex{configured: true, err: errors.New("503")}
	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, index, &fakeChunkStore{}, logger.NewNopLogger())
	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	assert.Empty(t, got.Passages)
}

func TestBuildLocalFallbackWhenUnconfigured(t *testing.T) {
	store := &fakeChunkStore{scored: []*contract.ScoredContentChunk{
		{Chunk: chunkRow(chunk0, srcA, 0, "local hit"), Similarity: 0.8},
	}}
	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, &fakeIndex{configured: false}, store, logger.NewNopLogger())

	got := b.Build(context.Background(), "q", Scope{OrganizationID: orgID})

	require.Len(t, got.Passages, 1)
	assert.Equal(t, "local hit", got.Passages[0].Text)
}

func TestBuildMemoizesQueryEmbedding(t *testing.T) {
	provider := &fakeProvider{vector: []float32{0.1}}
	b := NewBuilder(provider, &fakeIndex{configured: true}, &fakeChunkStore{}, logger.NewNopLogger())

	b.Build(context.Background(), "same query", Scope{OrganizationID: orgID})
	b.Build(context.Background(), "same query", Scope{OrganizationID: orgID})

	assert.Equal(t, 1, provider.calls)
}

func TestBuildEmptyInputs(t *testing.T) {
	b := NewBuilder(&fakeProvider{vector: []float32{0.1}}, &fakeIndex{}, &fakeChunkStore{}, logger.NewNopLogger())

	assert.Empty(t, b.Build(context.Background(), "", Scope{OrganizationID: orgID}).Passages)
	assert.Empty(t, b.Build(context.Background(), "q", Scope{}).Passages)
}
