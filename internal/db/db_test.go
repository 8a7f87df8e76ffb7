package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/jobtrack/internal/db"
)

func openTemp(t *testing.T) *dbpkg.DB {
	t.Helper()
	d, err := dbpkg.New(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	conn := d.GetConn()
	if conn == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	_, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);`)
	if err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "foo")
	if err != nil {
		t.Fatalf("Exec insert returned error: %v", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("LastInsertId returned error: %v", err)
	}
	if lastID == 0 {
		t.Fatalf("expected last insert id > 0")
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, lastID).Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if _, err := d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to leave 0 rows, got %d", count)
	}

	if err := d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('b')`)
		return err
	}); err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}
	if err := d.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 committed row, got %d", count)
	}
}
