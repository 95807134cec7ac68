package admin

import (
	"context"
	"fmt"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- EMPLOYEES ----------------

func (s *Service) ListEmployees(ctx context.Context) ([]*models.User, error) {
	return s.Store.ListUsers(ctx)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "employee", id)
	}
	return u, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req models.EmployeeRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		return nil, err
	}
	now := utils.Now()
	u := &models.User{
		ID:        utils.NewID(),
		Username:  req.Username,
		FullName:  req.FullName,
		Role:      req.Role,
		PinHash:   hash,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.Logger.LogSecurity("employee_created", fmt.Sprintf("user=%s role=%s", u.Username, u.Role))
	return u, nil
}

// UpdateEmployee changes name, role or active flag. Deactivating an employee
// or changing their role ends their sessions. Nobody can deactivate themselves.
func (s *Service) UpdateEmployee(ctx context.Context, actorID, id string, req models.EmployeeUpdateRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	u, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	var columns []string
	revoke := false
	if req.FullName != nil {
		u.FullName = *req.FullName
		columns = append(columns, "full_name")
	}
	if req.Role != nil && *req.Role != u.Role {
		u.Role = *req.Role
		columns = append(columns, "role")
		revoke = true
	}
	if req.IsActive != nil && *req.IsActive != u.IsActive {
		if !*req.IsActive && actorID == id {
			return nil, utils.Validation("you cannot deactivate your own account")
		}
		u.IsActive = *req.IsActive
		columns = append(columns, "is_active")
		revoke = revoke || !u.IsActive
	}
	if len(columns) == 0 {
		return u, nil
	}

	if _, err := s.Store.UpdateUser(ctx, u, columns...); err != nil {
		return nil, err
	}
	if revoke && s.Auth != nil {
		if err := s.Auth.RevokeUser(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	s.Logger.LogSecurity("employee_updated", fmt.Sprintf("user=%s role=%s active=%t", u.Username, u.Role, u.IsActive))
	return u, nil
}

// SetEmployeePIN resets a PIN and signs the employee out everywhere.
func (s *Service) SetEmployeePIN(ctx context.Context, id, pin string) error {
	return s.Auth.SetPIN(ctx, id, pin)
}
