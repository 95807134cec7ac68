package store

import (
	"context"
	"time"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- USERS ----------------

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := d.idb.NewInsert().Model(u).Exec(ctx)
	return err
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := d.idb.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := d.idb.NewSelect().Model(&u).Where("username = ?", username).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0)
	err := d.idb.NewSelect().Model(&users).Order("username").Scan(ctx)
	return users, err
}

// UpdateUser writes the named columns and bumps updated_at.
func (d *DB) UpdateUser(ctx context.Context, u *models.User, columns ...string) (int64, error) {
	u.UpdatedAt = utils.Now()
	return rowsAffected(d.idb.NewUpdate().
		Model(u).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx))
}

func (d *DB) UpdateUserPIN(ctx context.Context, id, pinHash string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.User)(nil)).
		Set("pin_hash = ?", pinHash).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Exec(ctx))
}

// ---------------- SESSIONS ----------------

func (d *DB) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := d.idb.NewInsert().Model(s).Exec(ctx)
	return err
}

func (d *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := d.idb.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) RevokeSession(ctx context.Context, id string, at time.Time) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Session)(nil)).
		Set("revoked_at = ?", at).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx))
}

// RevokeUserSessions ends every live session of a user and returns their IDs.
func (d *DB) RevokeUserSessions(ctx context.Context, userID string, at time.Time) ([]string, error) {
	var ids []string
	err := d.idb.NewSelect().
		Model((*models.Session)(nil)).
		Column("id").
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Scan(ctx, &ids)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	_, err = d.idb.NewUpdate().
		Model((*models.Session)(nil)).
		Set("revoked_at = ?", at).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	return ids, err
}

// PurgeSessions deletes sessions that expired or were revoked before cutoff.
func (d *DB) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(d.idb.NewDelete().
		Model((*models.Session)(nil)).
		WhereOr("expires_at < ?", cutoff).
		WhereOr("revoked_at < ?", cutoff).
		Exec(ctx))
}
