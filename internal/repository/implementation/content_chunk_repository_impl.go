package implementation

import (
	"context"
	"errors"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/mapper"
	"ai-drafting-be/internal/model"
	"ai-drafting-be/internal/repository/contract"
	"ai-drafting-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ContentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContentChunkMapper
}

func NewContentChunkRepository(db *gorm.DB) contract.ContentChunkRepository {
	return &ContentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewContentChunkMapper(),
	}
}

func (r *ContentChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ContentChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.ContentChunk) error {
	m := r.mapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *ContentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	// Update IDs back to entities
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ContentChunkRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ContentChunk{}, id).Error
}

func (r *ContentChunkRepositoryImpl) DeleteBySourceContentId(ctx context.Context, sourceContentId uuid.UUID) error {
	// Unscoped: replaced chunks are gone for good, soft-deleted rows would
	// collide with the (source, index) pairs of the new batch.
	return r.db.WithContext(ctx).Unscoped().
		Where("source_content_id = ?", sourceContentId).
		Delete(&model.ContentChunk{}).Error
}

func (r *ContentChunkRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContentChunk, error) {
	var m model.ContentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ContentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContentChunk, error) {
	var models []*model.ContentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ContentChunkRepositoryImpl) FindBySourceAndIndex(ctx context.Context, sourceContentId uuid.UUID, chunkIndex int) (*entity.ContentChunk, error) {
	return r.FindOne(ctx,
		specification.BySourceContentId{SourceContentId: sourceContentId},
		specification.ByChunkIndex{ChunkIndex: chunkIndex},
	)
}

func (r *ContentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ContentChunk{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns chunks with similarity scores, filtered by threshold
func (r *ContentChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, organizationId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		model.ContentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("content_chunks").
		Select("content_chunks.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN source_contents ON source_contents.id = content_chunks.source_content_id").
		Where("source_contents.organization_id = ?", organizationId).
		Where("content_chunks.deleted_at IS NULL").
		Where("source_contents.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredContentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredContentChunk{
			Chunk:      r.mapper.ToEntity(&res.ContentChunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
