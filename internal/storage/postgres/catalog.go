package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

type catalogRepository struct {
	q querier
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	const query = `SELECT id, name, price_cents, available FROM products WHERE id=$1`
	var (
		p     model.Product
		price int64
	)
	if err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &price, &p.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	p.Price = model.FromCents(price)
	return &p, nil
}
