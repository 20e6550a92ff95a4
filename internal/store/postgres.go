package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores designs in a Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl, err := schema("postgres.sql")
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) SaveDesign(ctx context.Context, d *Design) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO designs (id, name, width, height, scene)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			scene = EXCLUDED.scene,
			version = designs.version + 1,
			updated_at = now()
		RETURNING version, created_at, updated_at
	`, d.ID, d.Name, d.Width, d.Height, []byte(d.Scene)).Scan(&d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	return nil
}

func (p *Postgres) GetDesign(ctx context.Context, id string) (*Design, error) {
	var d Design
	var scene []byte
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, width, height, version, scene, created_at, updated_at
		FROM designs WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.Version, &scene, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	d.Scene = scene
	return &d, nil
}

func (p *Postgres) ListDesigns(ctx context.Context) ([]Design, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, width, height, version, created_at, updated_at
		FROM designs ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	designs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Design, error) {
		var d Design
		err := row.Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.Version, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return designs, nil
}

func (p *Postgres) DeleteDesign(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SaveThumbnail(ctx context.Context, id string, jpeg []byte) error {
	tag, err := p.pool.Exec(ctx, `UPDATE designs SET thumbnail = $2 WHERE id = $1`, id, jpeg)
	if err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetThumbnail(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT thumbnail FROM designs WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thumbnail: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
