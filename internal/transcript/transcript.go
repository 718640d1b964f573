// Package transcript normalizes raw transcription payloads into an internal
// shape and caches them per episode with explicit load state.
package transcript

import (
	"encoding/json"
	"sort"
)

// Utterance is one contiguous speaker turn with millisecond offsets.
type Utterance struct {
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// Word is a single word timing from the transcription service.
type Word struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

// Transcript is the normalized form served to clients: utterances sorted by
// start time with invalid entries dropped.
type Transcript struct {
	Slug       string      `json:"episode_slug"`
	Lang       string      `json:"lang"`
	Status     string      `json:"status"`
	Utterances []Utterance `json:"utterances"`
	Words      []Word      `json:"words,omitempty"`
}

// RawPayload mirrors the stored transcript row's JSON columns.
type RawPayload struct {
	Utterances json.RawMessage `json:"utterances"`
	Words      json.RawMessage `json:"words"`
	Status     string          `json:"status"`
}

// Normalize converts a raw payload into a Transcript. A payload with no
// utterances yields nil. Malformed utterances (bad JSON, negative times,
// end before start) are dropped rather than failing the whole transcript.
func Normalize(slug, lang string, raw RawPayload) *Transcript {
	if len(raw.Utterances) == 0 || string(raw.Utterances) == "null" {
		return nil
	}

	var utterances []Utterance
	if err := json.Unmarshal(raw.Utterances, &utterances); err != nil {
		return nil
	}

	valid := utterances[:0]
	for _, u := range utterances {
		if u.Start < 0 || u.End < u.Start {
			continue
		}
		valid = append(valid, u)
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	t := &Transcript{
		Slug:       slug,
		Lang:       lang,
		Status:     raw.Status,
		Utterances: valid,
	}

	if len(raw.Words) > 0 && string(raw.Words) != "null" {
		var words []Word
		if err := json.Unmarshal(raw.Words, &words); err == nil {
			t.Words = words
		}
	}

	return t
}

// UtteranceAt returns the utterance whose [start,end] range contains the
// given millisecond offset, or nil.
func (t *Transcript) UtteranceAt(ms int64) *Utterance {
	if t == nil {
		return nil
	}
	for i := range t.Utterances {
		u := &t.Utterances[i]
		if ms >= u.Start && ms <= u.End {
			return u
		}
	}
	return nil
}
