package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
)

// CreateAccount writes the user, its role profile and the first OTP record
// in one transaction.
func (s *DB) CreateAccount(ctx context.Context, acc entity.NewAccount) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	u := acc.User
	if _, err := tx.Exec(ctx, `
		INSERT INTO accounts_users (id, username, phone_no, password, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.PhoneNo, u.Password, u.IsActive, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return mapError(err)
	}

	if err := insertProfile(ctx, tx, acc.Profile); err != nil {
		return mapError(err)
	}

	if err := upsertOTP(ctx, tx, acc.OTP); err != nil {
		return mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return mapError(err)
	}

	return nil
}

func insertProfile(ctx context.Context, q querier, p entity.ProfileDetail) error {
	var err error

	switch p.Role {
	case entity.RoleCustomer:
		_, err = q.Exec(ctx, `
			INSERT INTO accounts_customers (user_id, clo_coin, customer_rank, is_otp, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			p.UserID, p.CloCoin, p.Rank, p.IsOTP, p.IsActive, p.CreatedAt)

	case entity.RoleSeller:
		d := p.Seller
		if d == nil {
			d = &entity.SellerDetail{}
		}
		_, err = q.Exec(ctx, `
			INSERT INTO accounts_sellers (user_id, shop_name, shop_address_1, shop_address_2, shop_landmark,
				gst_no, pan_no, account_no, file_gst, file_pan,
				clo_coin, seller_rank, is_otp, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
			p.UserID, d.ShopName, d.ShopAddress1, d.ShopAddress2, d.ShopLandmark,
			d.GSTNo, nullable(d.PANNo), nullable(d.AccountNo), d.FileGST, d.FilePAN,
			p.CloCoin, p.Rank, p.IsOTP, p.IsActive, p.CreatedAt)

	case entity.RoleDeliveryBoy:
		d := p.DeliveryBoy
		if d == nil {
			d = &entity.DeliveryBoyDetail{}
		}
		_, err = q.Exec(ctx, `
			INSERT INTO accounts_delivery_boys (user_id, license_no, file_license,
				clo_coin, delivery_boy_rank, is_otp, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			p.UserID, d.LicenseNo, d.FileLicense, p.CloCoin, p.Rank, p.IsOTP, p.IsActive, p.CreatedAt)

	default:
		return entity.ErrUnknownRole
	}

	return err
}

func upsertOTP(ctx context.Context, q querier, rec entity.OTPRecord) error {
	_, err := q.Exec(ctx, `
		INSERT INTO accounts_otps (user_id, code_hash, issued_at, expires_at, attempts_remaining, locked_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			attempts_remaining = EXCLUDED.attempts_remaining,
			locked_until = EXCLUDED.locked_until,
			updated_at = now()`,
		rec.UserID, rec.CodeHash, rec.IssuedAt, rec.ExpiresAt, rec.AttemptsRemaining, rec.LockedUntil)
	return err
}
