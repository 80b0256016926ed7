package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catalog-sync-service/internal/database"
)

const productColumns = `code, description, manufacture_date, cost, stock, deleted, synced, image_uri`

type ProductRepository struct {
	db *database.Database
}

func NewProductRepository(db *database.Database) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.Code,
		&p.Description,
		&p.ManufactureDate,
		&p.Cost,
		&p.Stock,
		&p.Deleted,
		&p.Synced,
		&p.ImageURI,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert stores p, replacing any row with the same code.
func (r *ProductRepository) Insert(ctx context.Context, p *Product) error {
	query := `REPLACE INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.DB.ExecContext(ctx, query,
		p.Code,
		p.Description,
		p.ManufactureDate,
		p.Cost,
		p.Stock,
		p.Deleted,
		p.Synced,
		p.ImageURI,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.Code, err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *Product) error {
	query := `UPDATE products SET description = ?, manufacture_date = ?, cost = ?, stock = ?, deleted = ?, synced = ?, image_uri = ?
			  WHERE code = ?`

	res, err := r.db.DB.ExecContext(ctx, query,
		p.Description,
		p.ManufactureDate,
		p.Cost,
		p.Stock,
		p.Deleted,
		p.Synced,
		p.ImageURI,
		p.Code,
	)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", p.Code, err)
	}
	return expectOne(res, "product", p.Code)
}

func (r *ProductRepository) Get(ctx context.Context, code string) (*Product, error) {
	row := r.db.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = ?`, code)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the products that are not flagged deleted.
func (r *ProductRepository) List(ctx context.Context) ([]*Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE deleted = ? ORDER BY code`, false)
}

// ListDeleted returns the tombstones awaiting remote deletion.
func (r *ProductRepository) ListDeleted(ctx context.Context) ([]*Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE deleted = ? ORDER BY code`, true)
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]*Product, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// MarkDeleted flags the product for deletion; it stays in the table until the
// remote delete is confirmed.
func (r *ProductRepository) MarkDeleted(ctx context.Context, code string) error {
	res, err := r.db.DB.ExecContext(ctx, `UPDATE products SET deleted = ?, synced = ? WHERE code = ?`, true, false, code)
	if err != nil {
		return fmt.Errorf("failed to mark product %s deleted: %w", code, err)
	}
	return expectOne(res, "product", code)
}

func (r *ProductRepository) DeletePhysical(ctx context.Context, code string) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM products WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", code, err)
	}
	return nil
}

func (r *ProductRepository) MarkSynced(ctx context.Context, code string) error {
	_, err := r.db.DB.ExecContext(ctx, `UPDATE products SET synced = ? WHERE code = ?`, true, code)
	if err != nil {
		return fmt.Errorf("failed to mark product %s synced: %w", code, err)
	}
	return nil
}

// Count returns the number of rows, tombstones included.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func expectOne(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	return nil
}
