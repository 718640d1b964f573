package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Episode is one published recording, identified by its human-derived slug.
type Episode struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Lang        string    `json:"lang"` // language tag or "all"
	Date        time.Time `json:"date"`
	AudioURL    string    `json:"audio_url"`
	FileKey     string    `json:"file_key"`
	FileBucket  string    `json:"file_bucket"`
	Provider    string    `json:"storage_provider"`
	Duration    float64   `json:"duration"`
}

// GetEpisode fetches one episode by slug. Returns nil when absent.
func (db *DB) GetEpisode(ctx context.Context, slug string) (*Episode, error) {
	data, _, err := db.api.From("episodes").
		Select("*", "", false).
		Eq("slug", slug).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", slug, err)
	}

	var rows []Episode
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode episode %s: %w", slug, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListEpisodes returns episodes, optionally filtered by language. Episodes
// tagged "all" are always included.
func (db *DB) ListEpisodes(ctx context.Context, lang string) ([]Episode, error) {
	q := db.api.From("episodes").Select("*", "", false)
	if lang != "" {
		q = q.In("lang", []string{lang, "all"})
	}
	data, _, err := q.Order("date", nil).Execute()
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	var rows []Episode
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}
	return rows, nil
}

// UpdateEpisodeStorage re-points an episode at a new stored file. Called
// after a re-upload moves the audio to a different backend.
func (db *DB) UpdateEpisodeStorage(ctx context.Context, slug, audioURL, key, bucket, provider string) error {
	payload := map[string]any{
		"audio_url":        audioURL,
		"file_key":         key,
		"file_bucket":      bucket,
		"storage_provider": provider,
	}
	_, _, err := db.api.From("episodes").
		Update(payload, "", "").
		Eq("slug", slug).
		Execute()
	if err != nil {
		return fmt.Errorf("update episode storage %s: %w", slug, err)
	}
	return nil
}

// DeleteEpisode removes the episode row. The caller is responsible for
// routing the storage delete for the file the row pointed at.
func (db *DB) DeleteEpisode(ctx context.Context, slug string) error {
	_, _, err := db.api.From("episodes").
		Delete("", "").
		Eq("slug", slug).
		Execute()
	if err != nil {
		return fmt.Errorf("delete episode %s: %w", slug, err)
	}
	return nil
}
