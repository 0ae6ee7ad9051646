package repository

import (
	"context"

	"github.com/agiletools/billingsync/internal/workspace/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) ListByType(ctx context.Context, db *gorm.DB, docType string) ([]domain.Document, error) {
	var docs []domain.Document
	if err := db.WithContext(ctx).
		Where("doc_type = ?", docType).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}
