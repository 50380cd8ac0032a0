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
	"gorm.io/gorm"
)

type SourceContentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SourceContentMapper
}

func NewSourceContentRepository(db *gorm.DB) contract.SourceContentRepository {
	return &SourceContentRepositoryImpl{
		db:     db,
		mapper: mapper.NewSourceContentMapper(),
	}
}

func (r *SourceContentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SourceContentRepositoryImpl) Create(ctx context.Context, source *entity.SourceContent) error {
	m := r.mapper.ToModel(source)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*source = *r.mapper.ToEntity(m)
	return nil
}

func (r *SourceContentRepositoryImpl) Update(ctx context.Context, source *entity.SourceContent) error {
	m := r.mapper.ToModel(source)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*source = *r.mapper.ToEntity(m)
	return nil
}

func (r *SourceContentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.SourceContent{}, id).Error
}

func (r *SourceContentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceContent, error) {
	var m model.SourceContent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SourceContentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceContent, error) {
	var models []*model.SourceContent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SourceContentRepositoryImpl) FindByOrganizationId(ctx context.Context, organizationId uuid.UUID) ([]*entity.SourceContent, error) {
	return r.FindAll(ctx, specification.OrganizationOwnedBy{OrganizationId: organizationId})
}

func (r *SourceContentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.SourceContent{}).Count(&count).Error
	return count, err
}
