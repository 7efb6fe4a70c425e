package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	conn := newTestDB(t)
	client := FromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := FromGorm(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&testModel{Name: "panicked"})
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPing(t *testing.T) {
	client := FromGorm(newTestDB(t))
	assert.NoError(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "votes_item_user_key"}
	wrapped := fmt.Errorf("insert vote: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "votes_item_user_key"))
	assert.False(t, IsUniqueViolation(wrapped, "other_key"))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: votes.user_id"), ""))
	assert.False(t, IsUniqueViolation(errors.New("timeout"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("nope")))
}
