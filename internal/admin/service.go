// Package admin holds the back-office operations: tables, customers,
// inventory, employees and system settings.
package admin

import (
	"database/sql"
	"errors"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/qr"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Service struct {
	Store  *store.DB
	Auth   *auth.Service
	Locker lock.Locker
	QR     *qr.QRGenerator
	Logger *logger.Logger
}

func NewService(db *store.DB, authSvc *auth.Service, locker lock.Locker, codes *qr.QRGenerator, log *logger.Logger) *Service {
	if locker == nil {
		locker = lock.NewMemory()
	}
	return &Service{Store: db, Auth: authSvc, Locker: locker, QR: codes, Logger: log}
}

// notFound turns sql.ErrNoRows into a 404 for the named resource.
func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return utils.NotFound("%s %s not found", kind, id)
	}
	return err
}
