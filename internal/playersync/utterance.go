package playersync

import (
	"math"

	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// UtteranceTracker resolves the transcript utterance containing the playback
// cursor. Pausing always clears the active utterance regardless of position.
type UtteranceTracker struct {
	tr      *transcript.Transcript
	current *transcript.Utterance
}

// NewUtteranceTracker builds a tracker over a normalized transcript, which
// may be nil (no transcript yet).
func NewUtteranceTracker(tr *transcript.Transcript) *UtteranceTracker {
	return &UtteranceTracker{tr: tr}
}

// SetTranscript swaps the transcript after a refetch and clears the active
// utterance so the next tick re-resolves against the new data.
func (ut *UtteranceTracker) SetTranscript(tr *transcript.Transcript) {
	ut.tr = tr
	ut.current = nil
}

// Advance feeds one position event. Returns the active utterance (nil when
// none) and whether it changed. NaN and negative times are ignored.
func (ut *UtteranceTracker) Advance(ev PositionEvent) (*transcript.Utterance, bool) {
	if ev.Paused {
		if ut.current == nil {
			return nil, false
		}
		ut.current = nil
		return nil, true
	}
	if math.IsNaN(ev.Time) || ev.Time < 0 {
		return ut.current, false
	}

	ms := int64(ev.Time * 1000)
	next := ut.tr.UtteranceAt(ms)
	if sameUtterance(next, ut.current) {
		return ut.current, false
	}
	ut.current = next
	return next, true
}

// Active returns the current utterance without advancing.
func (ut *UtteranceTracker) Active() *transcript.Utterance { return ut.current }

func sameUtterance(a, b *transcript.Utterance) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Start == b.Start && a.End == b.End
}
