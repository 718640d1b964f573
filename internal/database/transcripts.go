package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// GetTranscript fetches the raw transcript payload for (slug, lang).
// Returns a zero payload when none exists yet; callers treat that as
// "not available", not an error.
func (db *DB) GetTranscript(ctx context.Context, slug, lang string) (transcript.RawPayload, error) {
	data, _, err := db.api.From("transcripts").
		Select("utterances,words,status", "", false).
		Eq("episode_slug", slug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return transcript.RawPayload{}, fmt.Errorf("get transcript %s/%s: %w", slug, lang, err)
	}

	var rows []transcript.RawPayload
	if err := json.Unmarshal(data, &rows); err != nil {
		return transcript.RawPayload{}, fmt.Errorf("decode transcript %s/%s: %w", slug, lang, err)
	}
	if len(rows) == 0 {
		return transcript.RawPayload{}, nil
	}
	return rows[0], nil
}

// UpdateTranscript stores fresh transcription output and its status.
func (db *DB) UpdateTranscript(ctx context.Context, slug, lang string, utterances []transcript.Utterance, words []transcript.Word, status string) error {
	payload := map[string]any{
		"utterances": utterances,
		"words":      words,
		"status":     status,
	}
	_, _, err := db.api.From("transcripts").
		Update(payload, "", "").
		Eq("episode_slug", slug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return fmt.Errorf("update transcript %s/%s: %w", slug, lang, err)
	}
	return nil
}
