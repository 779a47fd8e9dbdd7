package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/online-auction/internal/model"
)

// ProductRepo provides CRUD operations for products.  Ownership checks
// happen here so handlers only deal in sentinel errors.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, seller_id, name, description, price, stock, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var (
		p    model.Product
		desc sql.NullString
	)
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &desc, &p.Price, &p.Stock,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	return &p, nil
}

// Create inserts a product and populates its generated ID and
// timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (seller_id, name, description, price, stock, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.SellerID, p.Name, p.Description, p.Price, p.Stock, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM products WHERE id = ?`, p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID fetches a product; ErrProductNotFound when absent.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	return p, err
}

// ListBySeller returns all products owned by the seller, newest first.
func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = ? ORDER BY created_at DESC`,
		sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update writes name, description, price, stock and active flag after
// verifying ownership.  ErrForbidden when the product belongs to a
// different seller; admins pass ownerID 0 to skip the check.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product, ownerID uint64) error {
	if ownerID != 0 {
		var actual uint64
		err := r.db.QueryRowContext(ctx,
			`SELECT seller_id FROM products WHERE id = ?`, p.ID).Scan(&actual)
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		if actual != ownerID {
			return ErrForbidden
		}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, stock = ?, is_active = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.IsActive, p.ID)
	return err
}

// DecrementStock reduces stock by qty, refusing to go negative.  Used by
// the settlement consumer, not by the auction engine itself.
func (r *ProductRepo) DecrementStock(ctx context.Context, id uint64, qty uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOutOfStock
	}
	return nil
}
