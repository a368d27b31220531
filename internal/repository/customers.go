package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmoiron/sqlx"
)

type CustomersRepository interface {
	Create(ctx context.Context, c model.Customer) (int64, error)
	List(ctx context.Context) ([]model.CustomerSummary, error)
	GetByCopyID(ctx context.Context, copyID string) (*model.Customer, error)
	Block(ctx context.Context, copyID string) error
	UpdateToken(ctx context.Context, copyID, token string) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

// Create inserts a customer and returns its row id. A duplicate copy_id
// surfaces as the driver's constraint error.
func (r *CustomersRepositoryImpl) Create(ctx context.Context, c model.Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (copy_id, token, name, email, blocked, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, c.CopyID, c.Token, c.Name, c.Email, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns every customer, newest first, without tokens.
func (r *CustomersRepositoryImpl) List(ctx context.Context) ([]model.CustomerSummary, error) {
	rows := make([]model.CustomerSummary, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, copy_id, name, email, blocked, created_at
		  FROM customers
		 ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByCopyID returns (nil, nil) when no customer has that copy_id.
func (r *CustomersRepositoryImpl) GetByCopyID(ctx context.Context, copyID string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, copy_id, token, name, email, blocked, created_at
		  FROM customers
		 WHERE copy_id = ? LIMIT 1
	`, copyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Block sets the blocked flag. Unknown copy_ids affect no rows.
func (r *CustomersRepositoryImpl) Block(ctx context.Context, copyID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE customers SET blocked = 1 WHERE copy_id = ?`, copyID)
	return err
}

// UpdateToken replaces the token. Unknown copy_ids affect no rows.
func (r *CustomersRepositoryImpl) UpdateToken(ctx context.Context, copyID, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE customers SET token = ? WHERE copy_id = ?`, token, copyID)
	return err
}
