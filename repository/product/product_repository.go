package product

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/muhammadheryan/catalog-api/model"
)

type SQL struct {
	conn *sqlx.DB
}

type ProductRepository interface {
	Create(ctx context.Context, data *model.ProductEntity) (*model.ProductEntity, error)
	GetByID(ctx context.Context, id string) (*model.ProductEntity, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*model.ProductEntity, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, data *model.ProductEntity) error
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, req *model.ProductSearchRequest) ([]model.ProductEntity, int64, error)
}

func NewProductRepository(conn *sqlx.DB) ProductRepository {
	return &SQL{conn: conn}
}

const (
	productColumnList = `p.id, p.name, p.category, p.description, p.images, p.stock, p.price, p.discount, p.status, p.created_by_id, p.created_at, p.updated_at`

	insertProductQuery = `INSERT INTO products (id, name, category, description, images, stock, price, discount, status, created_by_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	getProductByIDQuery = `SELECT ` + productColumnList + ` FROM products p WHERE p.id = ?`

	getProductForUpdateQuery = getProductByIDQuery + ` FOR UPDATE`

	updateProductQuery = `UPDATE products
SET name = ?, category = ?, description = ?, images = ?, stock = ?, price = ?, discount = ?, status = ?, updated_at = ?
WHERE id = ?`

	deleteProductQuery = `DELETE FROM products WHERE id = ?`

	searchProductsBase = `SELECT ` + productColumnList + ` FROM products p`

	countProductsBase = `SELECT COUNT(*) FROM products p`
)

func (s *SQL) Create(ctx context.Context, data *model.ProductEntity) (*model.ProductEntity, error) {
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	if data.Images == nil {
		data.Images = model.StringList{}
	}
	data.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.conn.ExecContext(ctx, insertProductQuery,
		data.ID, data.Name, data.Category, data.Description, data.Images,
		data.Stock, data.Price, data.Discount, data.Status, data.CreatedByID, data.CreatedAt)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GetByID returns nil, nil when the product does not exist.
func (s *SQL) GetByID(ctx context.Context, id string) (*model.ProductEntity, error) {
	return getProduct(ctx, s.conn, getProductByIDQuery, id)
}

// GetByIDForUpdateTx locks the row until tx ends.
func (s *SQL) GetByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*model.ProductEntity, error) {
	return getProduct(ctx, tx, getProductForUpdateQuery, id)
}

func (s *SQL) UpdateTx(ctx context.Context, tx *sqlx.Tx, data *model.ProductEntity) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err := tx.ExecContext(ctx, updateProductQuery,
		data.Name, data.Category, data.Description, data.Images, data.Stock,
		data.Price, data.Discount, data.Status, now, data.ID)
	if err != nil {
		return err
	}
	data.UpdatedAt = &now
	return nil
}

// Delete reports false when nothing was deleted.
func (s *SQL) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Search runs the filtered count and the requested page. Page and limit are
// expected to be validated by the caller.
func (s *SQL) Search(ctx context.Context, req *model.ProductSearchRequest) ([]model.ProductEntity, int64, error) {
	q := NewQuery().
		ApplyFilters(req.Filters).
		ApplySearch(req.Search).
		ApplySort(req.Sort)

	var total int64
	if err := s.conn.GetContext(ctx, &total, countProductsBase+q.Where(), q.Args()...); err != nil {
		return nil, 0, err
	}

	items := make([]model.ProductEntity, 0, req.Limit)
	if total == 0 {
		return items, 0, nil
	}

	query := searchProductsBase + q.Where() + q.OrderBy() + " LIMIT ? OFFSET ?"
	args := append(q.Args(), req.Limit, req.Offset())

	rows, err := s.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.ProductEntity
		if err := rows.StructScan(&it); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, query, id string) (*model.ProductEntity, error) {
	var p model.ProductEntity
	if err := sqlx.GetContext(ctx, q, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
