package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = Ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigDSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: "5432", User: "app", DBName: "haven", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=app dbname=haven sslmode=disable", cfg.DSN())

	cfg.Password = "secret"
	assert.Contains(t, cfg.DSN(), "password=secret")
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(&Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	prev := DB
	DB = db
	defer func() { DB = prev }()

	require.NoError(t, Migrate())
	assert.True(t, db.Migrator().HasTable("notification_statuses"))
	assert.True(t, db.Migrator().HasTable("article_favorites"))
	assert.NoError(t, Health(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "oracle"})
	assert.Error(t, err)
}
