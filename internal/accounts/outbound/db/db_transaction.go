package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

var profileTables = map[entity.Role]string{
	entity.RoleCustomer:    "accounts_customers",
	entity.RoleSeller:      "accounts_sellers",
	entity.RoleDeliveryBoy: "accounts_delivery_boys",
}

// WithUserLock opens a transaction, takes the row lock of the user and runs
// fn. Concurrent resend and validate calls for one user are serialized on
// that lock. fn's error rolls everything back.
func (s *DB) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tx usecase.TxRepo) error) (err error) {
	ctx, span := s.startSpan(ctx, "WithUserLock")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM accounts_users WHERE id = $1 FOR UPDATE`, userID).Scan(&id); err != nil {
		return mapError(err)
	}

	if err := fn(ctx, &txRepo{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return mapError(err)
	}

	return nil
}

type txRepo struct {
	q querier
}

func (t *txRepo) GetOTP(ctx context.Context, userID int64) (*entity.OTPRecord, error) {
	rec := entity.OTPRecord{UserID: userID}
	var attempts int16
	var lockedUntil *time.Time

	err := t.q.QueryRow(ctx, `
		SELECT code_hash, issued_at, expires_at, attempts_remaining, locked_until
		FROM accounts_otps WHERE user_id = $1`, userID,
	).Scan(&rec.CodeHash, &rec.IssuedAt, &rec.ExpiresAt, &attempts, &lockedUntil)
	if err != nil {
		return nil, mapError(err)
	}

	rec.AttemptsRemaining = int(attempts)
	rec.LockedUntil = lockedUntil
	return &rec, nil
}

func (t *txRepo) SaveOTP(ctx context.Context, rec entity.OTPRecord) error {
	return mapError(upsertOTP(ctx, t.q, rec))
}

func (t *txRepo) DeleteOTP(ctx context.Context, userID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM accounts_otps WHERE user_id = $1`, userID)
	return mapError(err)
}

func (t *txRepo) ActivateUser(ctx context.Context, userID int64) error {
	tag, err := t.q.Exec(ctx, `UPDATE accounts_users SET is_active = TRUE, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (t *txRepo) ProfileRoles(ctx context.Context, userID int64) ([]entity.Role, error) {
	var customer, seller, deliveryBoy bool
	err := t.q.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM accounts_customers WHERE user_id = $1),
			EXISTS (SELECT 1 FROM accounts_sellers WHERE user_id = $1),
			EXISTS (SELECT 1 FROM accounts_delivery_boys WHERE user_id = $1)`, userID,
	).Scan(&customer, &seller, &deliveryBoy)
	if err != nil {
		return nil, mapError(err)
	}

	var roles []entity.Role
	if customer {
		roles = append(roles, entity.RoleCustomer)
	}
	if seller {
		roles = append(roles, entity.RoleSeller)
	}
	if deliveryBoy {
		roles = append(roles, entity.RoleDeliveryBoy)
	}
	return roles, nil
}

func (t *txRepo) ActivateProfile(ctx context.Context, userID int64, role entity.Role, isOTP, isActive bool) error {
	table, ok := profileTables[role]
	if !ok {
		return entity.ErrUnknownRole
	}

	tag, err := t.q.Exec(ctx,
		`UPDATE `+table+` SET is_otp = $2, is_active = $3, updated_at = now() WHERE user_id = $1`,
		userID, isOTP, isActive)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}
