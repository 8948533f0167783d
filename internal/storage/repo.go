package storage

import (
	"context"
	"fmt"
	"time"
)

// GenerationRecord is one audited generation request.
type GenerationRecord struct {
	ID               int64     `json:"id"`
	Endpoint         string    `json:"endpoint"`
	UserID           string    `json:"userId"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Status           string    `json:"status"`
	DurationMs       int64     `json:"durationMs"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *Store) InsertGeneration(ctx context.Context, rec GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args, err := s.sql.
		Insert("generation_log").
		Columns("endpoint", "user_id", "provider", "model", "status",
			"duration_ms", "prompt_tokens", "completion_tokens", "created_at").
		Values(rec.Endpoint, rec.UserID, rec.Provider, rec.Model, rec.Status,
			rec.DurationMs, rec.PromptTokens, rec.CompletionTokens, rec.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert generation record: %w", err)
	}
	return nil
}

func (s *Store) RecentGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query, args, err := s.sql.
		Select("id", "endpoint", "user_id", "provider", "model", "status",
			"duration_ms", "prompt_tokens", "completion_tokens", "created_at").
		From("generation_log").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation log: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.UserID, &rec.Provider,
			&rec.Model, &rec.Status, &rec.DurationMs,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
