package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/database"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("clovigo"),
		tcpostgres.WithUsername("clovigo"),
		tcpostgres.WithPassword("clovigo"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(dsn, database.Up))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewDB(pool, instrument.NewNoop())
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newAccount(id int64, username, phone string, p entity.ProfileDetail) entity.NewAccount {
	p.UserID = id
	p.Rank = entity.DefaultRank
	p.CreatedAt = now
	return entity.NewAccount{
		User:    entity.User{ID: id, Username: username, PhoneNo: phone, Password: "hash", CreatedAt: now, UpdatedAt: now},
		Profile: p,
		OTP:     entity.NewOTPRecord(id, "digest-"+username, now, entity.DefaultOTPPolicy()),
	}
}

func TestDB_AccountsAndOTP(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateAccount(ctx, newAccount(1, "Alice", "+919876543210",
		entity.ProfileDetail{Profile: entity.Profile{Role: entity.RoleCustomer}})))
	require.NoError(t, db.CreateAccount(ctx, newAccount(2, "shop", "+919000000001",
		entity.ProfileDetail{Profile: entity.Profile{Role: entity.RoleSeller}, Seller: &entity.SellerDetail{
			ShopName: "Corner", ShopAddress1: "a", ShopAddress2: "b", ShopLandmark: "c",
			GSTNo: "GST1", FileGST: "document/g.pdf", FilePAN: "document/p.pdf",
		}})))

	t.Run("lookups", func(t *testing.T) {
		exists, err := db.UsernameExists(ctx, "ALICE")
		require.NoError(t, err)
		assert.True(t, exists)

		u, err := db.GetUserByIdentifier(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.ID)

		u, err = db.GetUserByIdentifier(ctx, "+919000000001")
		require.NoError(t, err)
		assert.Equal(t, "shop", u.Username)

		_, err = db.GetUserByID(ctx, 404)
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		p, err := db.GetProfile(ctx, 2, entity.RoleSeller)
		require.NoError(t, err)
		assert.Equal(t, "GST1", p.Seller.GSTNo)
		assert.Empty(t, p.Seller.PANNo)
		assert.Equal(t, entity.DefaultRank, p.Rank)

		_, err = db.GetProfile(ctx, 2, entity.RoleCustomer)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("conflicts", func(t *testing.T) {
		err := db.CreateAccount(ctx, newAccount(3, "alice", "+911111111111",
			entity.ProfileDetail{Profile: entity.Profile{Role: entity.RoleCustomer}}))
		var conflict *entity.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "username", conflict.Field)
		assert.ErrorIs(t, err, goerror.ErrConflict)

		err = db.CreateAccount(ctx, newAccount(4, "other", "+911111111112",
			entity.ProfileDetail{Profile: entity.Profile{Role: entity.RoleSeller}, Seller: &entity.SellerDetail{GSTNo: "GST1"}}))
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "gst_no", conflict.Field)

		// The failed transaction left nothing behind.
		_, err = db.GetUserByID(ctx, 4)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("otp lifecycle in a locked transaction", func(t *testing.T) {
		later := now.Add(time.Hour)
		err := db.WithUserLock(ctx, 1, func(ctx context.Context, tx usecase.TxRepo) error {
			rec, err := tx.GetOTP(ctx, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, 3, rec.AttemptsRemaining)
			assert.Nil(t, rec.LockedUntil)

			rec.AttemptsRemaining = 0
			rec.LockedUntil = &later
			return tx.SaveOTP(ctx, *rec)
		})
		require.NoError(t, err)

		errRollback := errors.New("rollback")
		err = db.WithUserLock(ctx, 1, func(ctx context.Context, tx usecase.TxRepo) error {
			if err := tx.DeleteOTP(ctx, 1); err != nil {
				return err
			}
			return errRollback
		})
		require.ErrorIs(t, err, errRollback)

		err = db.WithUserLock(ctx, 1, func(ctx context.Context, tx usecase.TxRepo) error {
			rec, err := tx.GetOTP(ctx, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, 0, rec.AttemptsRemaining)
			require.NotNil(t, rec.LockedUntil)
			assert.True(t, later.Equal(*rec.LockedUntil))

			if err := tx.ActivateUser(ctx, 1); err != nil {
				return err
			}
			if err := tx.DeleteOTP(ctx, 1); err != nil {
				return err
			}
			roles, err := tx.ProfileRoles(ctx, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, []entity.Role{entity.RoleCustomer}, roles)
			return tx.ActivateProfile(ctx, 1, entity.RoleCustomer, true, true)
		})
		require.NoError(t, err)

		u, err := db.GetUserByID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, u.IsActive)

		p, err := db.GetProfile(ctx, 1, entity.RoleCustomer)
		require.NoError(t, err)
		assert.True(t, p.IsActive)
		assert.True(t, p.IsOTP)

		err = db.WithUserLock(ctx, 1, func(ctx context.Context, tx usecase.TxRepo) error {
			_, err := tx.GetOTP(ctx, 1)
			return err
		})
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		err = db.WithUserLock(ctx, 404, func(context.Context, usecase.TxRepo) error { return nil })
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("lock serializes writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 5 {
			wg.Go(func() {
				_ = db.WithUserLock(ctx, 2, func(ctx context.Context, tx usecase.TxRepo) error {
					rec, err := tx.GetOTP(ctx, 2)
					if err != nil {
						return err
					}
					rec.AttemptsRemaining--
					if rec.AttemptsRemaining == 0 {
						until := now.Add(time.Hour)
						rec.LockedUntil = &until
					}
					if rec.AttemptsRemaining < 0 {
						return entity.ErrOTPRateLimited
					}
					return tx.SaveOTP(ctx, *rec)
				})
			})
		}
		wg.Wait()

		err := db.WithUserLock(ctx, 2, func(ctx context.Context, tx usecase.TxRepo) error {
			rec, err := tx.GetOTP(ctx, 2)
			if err != nil {
				return err
			}
			assert.Equal(t, 0, rec.AttemptsRemaining)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
