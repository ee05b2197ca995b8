// Package dbtest provides a gorm handle backed by go-sqlmock for repository
// tests.
package dbtest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ManuelReschke/Plano3D/internal/pkg/database"
	"gorm.io/gorm"
)

// NewMock returns a MySQL-dialect gorm DB and its mock. Unmet expectations
// fail the test on cleanup.
func NewMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	db, err := database.OpenWithConn(conn)
	if err != nil {
		t.Fatalf("Failed to open gorm connection: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		conn.Close()
	})
	return db, mock
}
