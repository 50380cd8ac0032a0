package service

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-drafting-be/internal/dto"
	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/contract"
	"ai-drafting-be/internal/repository/specification"
	"ai-drafting-be/internal/repository/unitofwork"
	"ai-drafting-be/pkg/chunker"
	"ai-drafting-be/pkg/embedding"
	ragcontext "ai-drafting-be/pkg/rag/context"
	"ai-drafting-be/pkg/vectorindex"
)

// In-memory repositories so the pipeline runs without a database. The
// DB-backed variant lives in test/integration and skips without
// DB_CONNECTION_STRING.

type memorySourceRepo struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]*entity.SourceContent
	failFindOne bool
}

func newMemorySourceRepo() *memorySourceRepo {
	return &memorySourceRepo{rows: map[uuid.UUID]*entity.SourceContent{}}
}

func (r *memorySourceRepo) Create(ctx context.Context, source *entity.SourceContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[source.Id] = source
	return nil
}

func (r *memorySourceRepo) Update(ctx context.Context, source *entity.SourceContent) error {
	return r.Create(ctx, source)
}

func (r *memorySourceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memorySourceRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceContent, error) {
	if r.failFindOne {
		return nil, errors.New("source lookup failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			return r.rows[byID.ID], nil
		}
	}
	return nil, nil
}

func (r *memorySourceRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.SourceContent, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, nil
}

func (r *memorySourceRepo) FindByOrganizationId(ctx context.Context, organizationId uuid.UUID) ([]*entity.SourceContent, error) {
	return r.FindAll(ctx)
}

func (r *memorySourceRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type memoryChunkRepo struct {
	mu              sync.Mutex
	rows            []*entity.ContentChunk
	failCreateBulk  bool
	createBulkCalls int
}

func (r *memoryChunkRepo) Create(ctx context.Context, chunk *entity.ContentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, chunk)
	return nil
}

func (r *memoryChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createBulkCalls++
	if r.failCreateBulk {
		return errors.New("bulk insert failed")
	}
	r.rows = append(r.rows, chunks...)
	return nil
}

func (r *memoryChunkRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.Id != id {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *memoryChunkRepo) DeleteBySourceContentId(ctx context.Context, sourceContentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.SourceContentId != sourceContentId {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *memoryChunkRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContentChunk, error) {
	return nil, nil
}

func (r *memoryChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ContentChunk, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *memoryChunkRepo) FindBySourceAndIndex(ctx context.Context, sourceContentId uuid.UUID, chunkIndex int) (*entity.ContentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.SourceContentId == sourceContentId && row.ChunkIndex == chunkIndex {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memoryChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memoryChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, organizationId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error) {
	return nil, nil
}

func (r *memoryChunkRepo) bySource(sourceContentId uuid.UUID) []*entity.ContentChunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ContentChunk
	for _, row := range r.rows {
		if row.SourceContentId == sourceContentId {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

type fakeUnitOfWork struct {
	sources *memorySourceRepo
	chunks  *memoryChunkRepo

	mu        sync.Mutex
	committed int
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }

func (u *fakeUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.committed++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error { return nil }

func (u *fakeUnitOfWork) commits() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.committed
}

func (u *fakeUnitOfWork) ContentRepository() contract.ContentRepository             { return nil }
func (u *fakeUnitOfWork) FileRepository() contract.FileRepository                   { return nil }
func (u *fakeUnitOfWork) SourceContentRepository() contract.SourceContentRepository { return u.sources }
func (u *fakeUnitOfWork) ContentChunkRepository() contract.ContentChunkRepository   { return u.chunks }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// textVector derives a deterministic bag-of-words vector so related sentences
// land close under cosine similarity.
func textVector(text string) []float32 {
	vec := make([]float32, 8)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%8]++
	}
	return vec
}

func cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func newEmbeddingServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		var req struct {
			Text json.RawMessage `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var texts []string
		if err := json.Unmarshal(req.Text, &texts); err != nil {
			var one string
			if err := json.Unmarshal(req.Text, &one); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(textVector(one))
			return
		}
		vectors := make([][]float32, len(texts))
		for i, t := range texts {
			vectors[i] = textVector(t)
		}
		json.NewEncoder(w).Encode(vectors)
	}))
}

// fakeIndex is an in-memory stand-in for the remote vector index, speaking its
// /upsert and /query wire shapes.
type fakeIndex struct {
	mu      sync.Mutex
	records []vectorindex.Record
	srv     *httptest.Server
}

func newFakeIndex() *fakeIndex {
	f := &fakeIndex{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upsert":
			var req struct {
				Vectors []vectorindex.Record `json:"vectors"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.records = append(f.records, req.Vectors...)
			count := len(req.Vectors)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]int{"upsertedCount": count})
		case "/query":
			var req struct {
				TopK   int               `json:"topK"`
				Vector []float32         `json:"vector"`
				Filter map[string]string `json:"filter"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			matches := make([]vectorindex.Match, 0, len(f.records))
			for _, rec := range f.records {
				if org, ok := req.Filter["organizationId"]; ok && rec.Metadata.OrganizationID != org {
					continue
				}
				matches = append(matches, vectorindex.Match{
					ID:       rec.ID,
					Score:    cosine(req.Vector, rec.Values),
					Metadata: rec.Metadata,
				})
			}
			f.mu.Unlock()
			sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
			if req.TopK > 0 && len(matches) > req.TopK {
				matches = matches[:req.TopK]
			}
			json.NewEncoder(w).Encode(map[string][]vectorindex.Match{"matches": matches})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return f
}

func (f *fakeIndex) upserted() []vectorindex.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]vectorindex.Record, len(f.records))
	copy(out, f.records)
	return out
}

type consumerFixture struct {
	uow      *fakeUnitOfWork
	consumer *consumerService
	index    *fakeIndex
	provider *embedding.HTTPProvider
	client   *vectorindex.Client
	pubSub   *gochannel.GoChannel
}

func newConsumerFixture(t *testing.T, embedStatus int) *consumerFixture {
	t.Helper()

	embedSrv := newEmbeddingServer(embedStatus)
	t.Cleanup(embedSrv.Close)
	index := newFakeIndex()
	t.Cleanup(index.srv.Close)

	uow := &fakeUnitOfWork{
		sources: newMemorySourceRepo(),
		chunks:  &memoryChunkRepo{},
	}
	provider := embedding.NewHTTPProvider(embedSrv.URL, "", 0)
	client := vectorindex.NewClient(vectorindex.Config{
		BaseURL:  index.srv.URL,
		APIToken: "test-token",
	}, logger.NewNopLogger())
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	svc := NewConsumerService(
		pubSub,
		"EMBED_SOURCE_CONTENT",
		&fakeFactory{uow: uow},
		provider,
		client,
		nil,
		chunker.Options{},
		logger.NewNopLogger(),
	)

	return &consumerFixture{
		uow:      uow,
		consumer: svc.(*consumerService),
		index:    index,
		provider: provider,
		client:   client,
		pubSub:   pubSub,
	}
}

func embedMessage(t *testing.T, sourceContentId uuid.UUID) *message.Message {
	t.Helper()
	payload, err := json.Marshal(dto.PublishEmbedSourceMessage{SourceContentId: sourceContentId})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func isAcked(msg *message.Message) bool {
	select {
	case <-msg.Acked():
		return true
	default:
		return false
	}
}

func isNacked(msg *message.Message) bool {
	select {
	case <-msg.Nacked():
		return true
	default:
		return false
	}
}

func buildTranscript(n int) string {
	var b strings.Builder
	sentences := []string{
		"The quarterly planning review covered staffing changes and budget allocations across every team. ",
		"Migration milestones were pushed back two weeks after the infrastructure audit. ",
		"Hiring for the platform group resumes once the budget allocations are confirmed. ",
	}
	for i := 0; b.Len() < n; i++ {
		b.WriteString(sentences[i%len(sentences)])
		if i%4 == 3 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// Ingest a ~5,000-character transcript through the bus, then query the index
// with a related sentence and check the top passage resolves to that source.
func TestConsumerPipelineEndToEnd(t *testing.T) {
	fx := newConsumerFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orgId := uuid.New()
	source := &entity.SourceContent{
		Id:             uuid.New(),
		Alias:          "planning-review",
		Title:          "Quarterly Planning Review",
		Body:           buildTranscript(5000),
		OrganizationId: orgId,
	}
	require.NoError(t, fx.uow.sources.Create(ctx, source))

	require.NoError(t, fx.consumer.Consume(ctx))
	require.NoError(t, fx.pubSub.Publish("EMBED_SOURCE_CONTENT", embedMessage(t, source.Id)))

	require.Eventually(t, func() bool {
		return fx.uow.commits() == 1 && len(fx.index.upserted()) > 0
	}, 5*time.Second, 10*time.Millisecond, "consumer did not process the message")

	// Chunk rows: contiguous indices, metadata snapshot carried.
	rows := fx.uow.chunks.bySource(source.Id)
	require.GreaterOrEqual(t, len(rows), 2)
	for i, row := range rows {
		assert.Equal(t, i, row.ChunkIndex)
		assert.Equal(t, source.Alias, row.Metadata["alias"])
	}

	// Upserted records: deterministic ids, org metadata on every vector.
	records := fx.index.upserted()
	require.Len(t, records, len(rows))
	for _, rec := range records {
		assert.Equal(t, vectorindex.RecordID(source.Id.String(), rec.Metadata.ChunkIndex), rec.ID)
		assert.Equal(t, orgId.String(), rec.Metadata.OrganizationID)
		assert.Equal(t, source.Id.String(), rec.Metadata.SourceContentID)
	}

	// Query with a related sentence; the top match must be the ingested source.
	builder := ragcontext.NewBuilder(fx.provider, fx.client, fx.uow.chunks, logger.NewNopLogger())
	retrieved := builder.Build(ctx, "how were budget allocations and staffing handled", ragcontext.Scope{
		OrganizationID: orgId,
	})
	require.NotEmpty(t, retrieved.Passages)
	assert.Equal(t, source.Id, retrieved.Passages[0].SourceContentID)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	fx := newConsumerFixture(t, 0)

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	fx.consumer.processMessage(context.Background(), msg)

	assert.True(t, isAcked(msg), "malformed payload should be acked, it never becomes valid")
	assert.False(t, isNacked(msg))
	assert.Zero(t, fx.uow.chunks.createBulkCalls)
}

func TestConsumerAcksMissingSource(t *testing.T) {
	fx := newConsumerFixture(t, 0)

	msg := embedMessage(t, uuid.New()) // deleted between publish and consume
	fx.consumer.processMessage(context.Background(), msg)

	assert.True(t, isAcked(msg))
	assert.Zero(t, fx.uow.chunks.createBulkCalls)
}

func TestConsumerNacksWhenSourceLoadFails(t *testing.T) {
	fx := newConsumerFixture(t, 0)
	fx.uow.sources.failFindOne = true

	msg := embedMessage(t, uuid.New())
	fx.consumer.processMessage(context.Background(), msg)

	assert.True(t, isNacked(msg), "a transient lookup failure should be retried")
	assert.False(t, isAcked(msg))
}

func TestConsumerNacksWhenEmbeddingFails(t *testing.T) {
	fx := newConsumerFixture(t, http.StatusInternalServerError)
	ctx := context.Background()

	source := &entity.SourceContent{
		Id:             uuid.New(),
		Alias:          "flaky-source",
		Body:           buildTranscript(2000),
		OrganizationId: uuid.New(),
	}
	require.NoError(t, fx.uow.sources.Create(ctx, source))

	existing := &entity.ContentChunk{
		Id:              uuid.New(),
		SourceContentId: source.Id,
		ChunkIndex:      0,
		Document:        "previous chunk set",
	}
	require.NoError(t, fx.uow.chunks.Create(ctx, existing))

	msg := embedMessage(t, source.Id)
	fx.consumer.processMessage(ctx, msg)

	assert.True(t, isNacked(msg))
	assert.Zero(t, fx.uow.chunks.createBulkCalls)

	// The old rows survive an embedding failure untouched.
	kept, err := fx.uow.chunks.FindBySourceAndIndex(ctx, source.Id, 0)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "previous chunk set", kept.Document)
	assert.Empty(t, fx.index.upserted())
}

func TestConsumerSkipsUpsertWhenReplacementFails(t *testing.T) {
	fx := newConsumerFixture(t, 0)
	fx.uow.chunks.failCreateBulk = true
	ctx := context.Background()

	source := &entity.SourceContent{
		Id:             uuid.New(),
		Alias:          "unwritable-source",
		Body:           buildTranscript(2000),
		OrganizationId: uuid.New(),
	}
	require.NoError(t, fx.uow.sources.Create(ctx, source))

	msg := embedMessage(t, source.Id)
	fx.consumer.processMessage(ctx, msg)

	assert.True(t, isNacked(msg))
	assert.Zero(t, fx.uow.commits())
	assert.Empty(t, fx.index.upserted(), "nothing reaches the index before the rows commit")
}
