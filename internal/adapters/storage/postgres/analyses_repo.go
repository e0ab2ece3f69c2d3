package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutrition-call-assistant/internal/domain/analysis"
)

type AnalysesRepo struct {
	db *sql.DB
}

var _ analysis.Repository = (*AnalysesRepo)(nil)

func NewAnalysesRepo(db *sql.DB) *AnalysesRepo {
	return &AnalysesRepo{db: db}
}

func (r *AnalysesRepo) Create(ctx context.Context, e analysis.Entry) error {
	payload, err := json.Marshal(e.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO food_log (
			id, image_url, short_url,
			source, description,
			analysis, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		e.ID,
		e.ImageURL,
		e.ShortURL,
		string(e.Source),
		e.Description,
		payload,
		e.CreatedAt,
	)
	return err
}

func (r *AnalysesRepo) GetByID(ctx context.Context, id string) (analysis.Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return analysis.Entry{}, analysis.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, image_url, short_url,
			source, description,
			analysis, created_at
		FROM food_log
		WHERE id = $1
	`, id)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return analysis.Entry{}, analysis.ErrNotFound
		}
		return analysis.Entry{}, err
	}
	return e, nil
}

func (r *AnalysesRepo) ListRecent(ctx context.Context, limit int) ([]analysis.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, image_url, short_url,
			source, description,
			analysis, created_at
		FROM food_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]analysis.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (analysis.Entry, error) {
	var e analysis.Entry
	var source string
	var payload []byte
	if err := s.Scan(
		&e.ID,
		&e.ImageURL,
		&e.ShortURL,
		&source,
		&e.Description,
		&payload,
		&e.CreatedAt,
	); err != nil {
		return analysis.Entry{}, err
	}

	e.Source = analysis.Source(source)
	if err := json.Unmarshal(payload, &e.Analysis); err != nil {
		return analysis.Entry{}, fmt.Errorf("decode analysis %s: %w", e.ID, err)
	}
	return e, nil
}
