package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

const selectUser = `SELECT id, username, phone_no, password, is_active, created_at, updated_at FROM accounts_users `

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(&u.ID, &u.Username, &u.PhoneNo, &u.Password, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (s *DB) UsernameExists(ctx context.Context, username string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "UsernameExists")
	defer func() { s.endSpan(span, err) }()

	var exists bool
	err = s.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts_users WHERE lower(username) = lower($1))`, username,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}

	return exists, nil
}

func (s *DB) GetUserByUsername(ctx context.Context, username string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByUsername")
	defer func() { s.endSpan(span, err) }()

	return scanUser(s.conn.QueryRow(ctx, selectUser+`WHERE lower(username) = lower($1)`, username))
}

// GetUserByIdentifier resolves a username first, then a phone number held
// by exactly one user.
func (s *DB) GetUserByIdentifier(ctx context.Context, identifier string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByIdentifier")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, selectUser+`WHERE lower(username) = lower($1)`, identifier))
	if !errors.Is(err, goerror.ErrNotFound) {
		return u, err
	}

	rows, err := s.conn.Query(ctx, selectUser+`WHERE phone_no = $1 ORDER BY id LIMIT 2`, identifier)
	if err != nil {
		return nil, mapError(err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(users) != 1 {
		return nil, goerror.ErrNotFound
	}

	return users[0], nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	return scanUser(s.conn.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
}

func (s *DB) GetProfile(ctx context.Context, userID int64, role entity.Role) (_ *entity.ProfileDetail, err error) {
	ctx, span := s.startSpan(ctx, "GetProfile")
	defer func() { s.endSpan(span, err) }()

	p := entity.ProfileDetail{Profile: entity.Profile{UserID: userID, Role: role}}
	var createdAt time.Time

	switch role {
	case entity.RoleCustomer:
		err = s.conn.QueryRow(ctx, `
			SELECT clo_coin, customer_rank, is_otp, is_active, created_at
			FROM accounts_customers WHERE user_id = $1`, userID,
		).Scan(&p.CloCoin, &p.Rank, &p.IsOTP, &p.IsActive, &createdAt)

	case entity.RoleSeller:
		var d entity.SellerDetail
		var pan, account *string
		err = s.conn.QueryRow(ctx, `
			SELECT clo_coin, seller_rank, is_otp, is_active, created_at,
				shop_name, shop_address_1, shop_address_2, shop_landmark,
				gst_no, pan_no, account_no, file_gst, file_pan
			FROM accounts_sellers WHERE user_id = $1`, userID,
		).Scan(&p.CloCoin, &p.Rank, &p.IsOTP, &p.IsActive, &createdAt,
			&d.ShopName, &d.ShopAddress1, &d.ShopAddress2, &d.ShopLandmark,
			&d.GSTNo, &pan, &account, &d.FileGST, &d.FilePAN)
		d.PANNo, d.AccountNo = deref(pan), deref(account)
		p.Seller = &d

	case entity.RoleDeliveryBoy:
		var d entity.DeliveryBoyDetail
		err = s.conn.QueryRow(ctx, `
			SELECT clo_coin, delivery_boy_rank, is_otp, is_active, created_at,
				license_no, file_license
			FROM accounts_delivery_boys WHERE user_id = $1`, userID,
		).Scan(&p.CloCoin, &p.Rank, &p.IsOTP, &p.IsActive, &createdAt, &d.LicenseNo, &d.FileLicense)
		p.DeliveryBoy = &d

	default:
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}

	p.CreatedAt = createdAt
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable stores an empty optional column as NULL so unique constraints
// ignore it.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
