package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/perudosmundos/audio-sub003/internal/playersync"
)

// ListQuestions returns the question set for one (episode, language) pair.
// Order in storage is not guaranteed; callers sort as needed.
func (db *DB) ListQuestions(ctx context.Context, slug, lang string) ([]playersync.Question, error) {
	data, _, err := db.api.From("questions").
		Select("*", "", false).
		Eq("episode_slug", slug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list questions %s/%s: %w", slug, lang, err)
	}

	var rows []playersync.Question
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode questions %s/%s: %w", slug, lang, err)
	}
	return rows, nil
}
