package store

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- CUSTOMERS ----------------

func (d *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := d.idb.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := d.idb.NewSelect().Model(&c).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) ListCustomers(ctx context.Context, search string, limit, offset int) ([]*models.Customer, error) {
	customers := make([]*models.Customer, 0)
	q := d.idb.NewSelect().Model(&customers).Order("name")
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(name) LIKE ?", like).WhereOr("phone LIKE ?", like)
		})
	}
	return customers, applyPage(q, limit, offset).Scan(ctx)
}

func (d *DB) UpdateCustomer(ctx context.Context, c *models.Customer) (int64, error) {
	c.UpdatedAt = utils.Now()
	return rowsAffected(d.idb.NewUpdate().
		Model(c).
		Column("name", "phone", "email", "credit_limit", "updated_at").
		WherePK().
		Exec(ctx))
}

func (d *DB) DeleteCustomer(ctx context.Context, id string) (int64, error) {
	res, err := d.idb.NewDelete().
		Model((*models.Customer)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return deleteRows(res, err, "customer", id)
}

// ChargeCredit raises a customer's credit balance unless that would pass a
// non-zero credit limit. Zero rows means the limit would be exceeded or the
// customer does not exist.
func (d *DB) ChargeCredit(ctx context.Context, customerID string, amount int64) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Customer)(nil)).
		Set("credit_balance = credit_balance + ?", amount).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", customerID).
		Where("(credit_limit = 0 OR credit_balance + ? <= credit_limit)", amount).
		Exec(ctx))
}

// SettleCredit lowers a customer's credit balance, never below zero.
func (d *DB) SettleCredit(ctx context.Context, customerID string, amount int64) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Customer)(nil)).
		Set("credit_balance = credit_balance - ?", amount).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", customerID).
		Where("credit_balance >= ?", amount).
		Exec(ctx))
}

func (d *DB) InsertCustomerPayment(ctx context.Context, p *models.CustomerPayment) error {
	_, err := d.idb.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) ListCustomerPayments(ctx context.Context, customerID string) ([]*models.CustomerPayment, error) {
	payments := make([]*models.CustomerPayment, 0)
	err := d.idb.NewSelect().
		Model(&payments).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Scan(ctx)
	return payments, err
}
