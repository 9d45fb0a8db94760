package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

const orderColumns = `id, number, origin, pending_id, session_id, table_ref, customer_id, customer_name, status, total_cents, created_by, created_at, updated_at`

type orderRepository struct {
	q   querier
	now func() time.Time
}

func (r *orderRepository) MaxNumber(ctx context.Context) (model.OrderNumber, error) {
	var max int64
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM orders`).Scan(&max); err != nil {
		return 0, err
	}
	return model.OrderNumber(max), nil
}

// Create inserts the order row, its items and payments. It is meant to run
// inside a transaction; a unique violation aborts it.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (number, origin, pending_id, session_id, table_ref, customer_id, customer_name,
                             status, total_cents, created_by, created_at, updated_at)
                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
                         RETURNING id`
	err := r.q.QueryRow(ctx, insertOrder,
		int64(order.Number), string(order.Origin), order.PendingID, order.SessionID, order.TableRef, order.CustomerID, order.CustomerName,
		string(order.Status), model.Cents(order.Total), order.CreatedBy, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err, "orders_number_key"):
			return fmt.Errorf("%w: %s", domainErrors.ErrDuplicateOrderNumber, order.Number)
		case isUniqueViolation(err, "orders_pending_id_key"):
			return fmt.Errorf("%w: pending order %s already accepted", domainErrors.ErrAlreadyExists, order.PendingID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price_cents, notes, additions)
                        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, it := range order.Items {
		additions := it.Additions
		if additions == nil {
			additions = []model.Addition{}
		}
		raw, err := json.Marshal(additions)
		if err != nil {
			return fmt.Errorf("encode additions: %w", err)
		}
		if _, err := r.q.Exec(ctx, insertItem, order.ID, i, it.ProductID, it.Name, it.Quantity, model.Cents(it.UnitPrice), it.Notes, raw); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for i := range order.Payments {
		if err := r.insertPayment(ctx, order.ID, &order.Payments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) insertPayment(ctx context.Context, orderID int64, p *model.PaymentEntry) error {
	const query = `INSERT INTO payments (order_id, session_id, method, amount_cents, tendered_cents, change_cents)
                   VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.q.QueryRow(ctx, query, orderID, p.SessionID, string(p.Method),
		model.Cents(p.Amount), model.Cents(p.Tendered), model.Cents(p.Change)).Scan(&p.ID)
	if err != nil {
		if code, _, ok := pgErrorCode(err); ok && code == pgerrcode.ForeignKeyViolation {
			return domainErrors.ErrNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepository) GetByPendingID(ctx context.Context, pendingID string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE pending_id=$1`, pendingID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	orders := []model.Order{*order}
	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepository) ListByStatus(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	rows, err := r.q.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY number`, raw)
	if err != nil {
		return nil, err
	}
	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadDetails(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadDetails fills items and payments of orders in two queries.
func (r *orderRepository) loadDetails(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	const itemsQuery = `SELECT order_id, product_id, name, quantity, unit_price_cents, notes, additions
                        FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`
	rows, err := r.q.Query(ctx, itemsQuery, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			orderID, price int64
			it             model.LineItem
			additions      []byte
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &price, &it.Notes, &additions); err != nil {
			rows.Close()
			return err
		}
		it.UnitPrice = model.FromCents(price)
		if len(additions) > 0 {
			if err := json.Unmarshal(additions, &it.Additions); err != nil {
				rows.Close()
				return fmt.Errorf("decode additions: %w", err)
			}
		}
		if len(it.Additions) == 0 {
			it.Additions = nil
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const paymentsQuery = `SELECT id, order_id, session_id, method, amount_cents, tendered_cents, change_cents
                           FROM payments WHERE order_id = ANY($1) ORDER BY id`
	rows, err = r.q.Query(ctx, paymentsQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p                         model.PaymentEntry
			orderID                   int64
			method                    string
			amount, tendered, changed int64
		)
		if err := rows.Scan(&p.ID, &orderID, &p.SessionID, &method, &amount, &tendered, &changed); err != nil {
			return err
		}
		p.Method = model.PaymentMethod(method)
		p.Amount = model.FromCents(amount)
		p.Tendered = model.FromCents(tendered)
		p.Change = model.FromCents(changed)
		i := index[orderID]
		orders[i].Payments = append(orders[i].Payments, p)
	}
	return rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	const query = `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	tag, err := r.q.Exec(ctx, query, string(to), r.now(), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domainErrors.ErrNotFound
	}
	return fmt.Errorf("%w: order %d is no longer %s", domainErrors.ErrInvalidTransition, id, from)
}

func (r *orderRepository) AddPayments(ctx context.Context, orderID int64, payments []model.PaymentEntry) ([]model.PaymentEntry, error) {
	out := append([]model.PaymentEntry(nil), payments...)
	for i := range out {
		if err := r.insertPayment(ctx, orderID, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *orderRepository) UpdatePaymentTender(ctx context.Context, payment model.PaymentEntry) error {
	const query = `UPDATE payments SET tendered_cents=$1, change_cents=$2 WHERE id=$3`
	tag, err := r.q.Exec(ctx, query, model.Cents(payment.Tendered), model.Cents(payment.Change), payment.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o              model.Order
		number, total  int64
		origin, status string
	)
	err := row.Scan(&o.ID, &number, &origin, &o.PendingID, &o.SessionID, &o.TableRef, &o.CustomerID, &o.CustomerName,
		&status, &total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Number = model.OrderNumber(number)
	o.Origin = model.Origin(origin)
	o.Status = model.OrderStatus(status)
	o.Total = model.FromCents(total)
	return &o, nil
}
