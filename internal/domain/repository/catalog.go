package repository

import (
	"context"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// CatalogRepository is the read side of the product catalog.
type CatalogRepository interface {
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
}
