package api

import (
	"context"
	"io"

	"github.com/perudosmundos/audio-sub003/internal/database"
	"github.com/perudosmundos/audio-sub003/internal/playersync"
	"github.com/perudosmundos/audio-sub003/internal/storage"
	"github.com/perudosmundos/audio-sub003/internal/transcribe"
	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// EpisodeStore is the database surface the handlers read and write.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, slug string) (*database.Episode, error)
	ListEpisodes(ctx context.Context, lang string) ([]database.Episode, error)
	UpdateEpisodeStorage(ctx context.Context, slug, audioURL, key, bucket, provider string) error
	DeleteEpisode(ctx context.Context, slug string) error
	ListQuestions(ctx context.Context, slug, lang string) ([]playersync.Question, error)
	GetTranscript(ctx context.Context, slug, lang string) (transcript.RawPayload, error)
}

// StorageRouter dispatches file operations across the configured backends.
type StorageRouter interface {
	Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string, progress storage.ProgressFunc) (storage.UploadResult, error)
	Delete(ctx context.Context, key, bucket, providerTag string) storage.DeleteResult
	CheckExists(ctx context.Context, filename string) storage.ExistsResult
	TestConnections(ctx context.Context) storage.ConnectionsResult
	Target() storage.Provider
}

// Parker parks an upload for later retry when the backend is down.
type Parker interface {
	Park(p storage.Provider, key string, data []byte, contentType string) error
}

// JobQueue accepts transcription jobs and reports their status.
type JobQueue interface {
	Enqueue(j transcribe.Job) (string, bool)
	Status(id string) (transcribe.JobStatus, bool)
	Stats() transcribe.QueueStats
}

// HealthChecker is one named dependency probe for the health endpoint.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}
