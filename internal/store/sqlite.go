package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLite stores designs in a single-file embedded database. Timestamps are
// kept as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ddl, err := schema("sqlite.sql")
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveDesign(ctx context.Context, d *Design) error {
	now := time.Now().UnixMilli()
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO designs (id, name, width, height, scene, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			width = excluded.width,
			height = excluded.height,
			scene = excluded.scene,
			version = designs.version + 1,
			updated_at = excluded.updated_at
		RETURNING version, created_at, updated_at
	`, d.ID, d.Name, d.Width, d.Height, string(d.Scene), now, now).Scan(&d.Version, &created, &updated)
	if err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	d.CreatedAt = time.UnixMilli(created).UTC()
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return nil
}

func (s *SQLite) GetDesign(ctx context.Context, id string) (*Design, error) {
	var d Design
	var scene string
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, width, height, version, scene, created_at, updated_at
		FROM designs WHERE id = ?
	`, id).Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.Version, &scene, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	d.Scene = []byte(scene)
	d.CreatedAt = time.UnixMilli(created).UTC()
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return &d, nil
}

func (s *SQLite) ListDesigns(ctx context.Context) ([]Design, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, width, height, version, created_at, updated_at
		FROM designs ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	designs := []Design{}
	for rows.Next() {
		var d Design
		var created, updated int64
		if err := rows.Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.Version, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		d.CreatedAt = time.UnixMilli(created).UTC()
		d.UpdatedAt = time.UnixMilli(updated).UTC()
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return designs, nil
}

func (s *SQLite) DeleteDesign(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) SaveThumbnail(ctx context.Context, id string, jpeg []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE designs SET thumbnail = ? WHERE id = ?`, jpeg, id)
	if err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) GetThumbnail(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT thumbnail FROM designs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thumbnail: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
