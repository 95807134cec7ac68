package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ---------------- CUSTOMERS ----------------

func (s *Service) ListCustomers(ctx context.Context, search string, limit, offset int) ([]*models.Customer, error) {
	return s.Store.ListCustomers(ctx, search, limit, offset)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	c, err := s.Store.GetCustomer(ctx, id)
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	return c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req models.CustomerRequest) (*models.Customer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	now := utils.Now()
	c := &models.Customer{
		ID:          utils.NewID(),
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		CreditLimit: req.CreditLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCustomer rejects a credit limit below the balance already owed.
func (s *Service) UpdateCustomer(ctx context.Context, id string, req models.CustomerRequest) (*models.Customer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CreditLimit > 0 && req.CreditLimit < c.CreditBalance {
		return nil, utils.Validation("credit limit %s is below the outstanding balance %s",
			utils.FormatMoney(req.CreditLimit), utils.FormatMoney(c.CreditBalance))
	}
	c.Name, c.Phone, c.Email, c.CreditLimit = req.Name, req.Phone, req.Email, req.CreditLimit
	if _, err := s.Store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCustomer removes a customer who owes nothing. Zero changes with a nil
// error means the customer did not exist.
func (s *Service) DeleteCustomer(ctx context.Context, id string) (int64, error) {
	c, err := s.Store.GetCustomer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if c.CreditBalance > 0 {
		return 0, utils.Conflict("customer %s has an outstanding balance of %s", c.Name, utils.FormatMoney(c.CreditBalance))
	}
	return s.Store.DeleteCustomer(ctx, id)
}

func (s *Service) CustomerPayments(ctx context.Context, id string) ([]*models.CustomerPayment, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListCustomerPayments(ctx, id)
}

// SettleCredit records a payment against the customer's credit balance.
func (s *Service) SettleCredit(ctx context.Context, userID, id string, req models.CustomerPaymentRequest) (*models.Customer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var c *models.Customer
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		var err error
		if c, err = tx.GetCustomer(ctx, id); err != nil {
			return notFound(err, "customer", id)
		}
		if req.Amount > c.CreditBalance {
			return utils.Validation("payment %s exceeds the outstanding balance %s",
				utils.FormatMoney(req.Amount), utils.FormatMoney(c.CreditBalance))
		}
		n, err := tx.SettleCredit(ctx, id, req.Amount)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("balance of %s changed concurrently", c.Name)
		}
		if err := tx.InsertCustomerPayment(ctx, &models.CustomerPayment{
			ID:         utils.NewID(),
			CustomerID: id,
			Amount:     req.Amount,
			Method:     req.Method,
			CreatedBy:  userID,
			CreatedAt:  utils.Now(),
		}); err != nil {
			return err
		}
		c, err = tx.GetCustomer(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("CUSTOMER", fmt.Sprintf("%s settled %s by %s, balance now %s",
		c.Name, utils.FormatMoney(req.Amount), req.Method, utils.FormatMoney(c.CreditBalance)))
	return c, nil
}
