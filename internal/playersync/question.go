// Package playersync derives "currently active" question and utterance state
// from a stream of playback-position events. Trackers are pure state
// machines: (state, event) in, (state, optional change) out, with no media
// or timer dependencies.
package playersync

import (
	"math"
	"sort"
)

// IntroQuestionID marks the synthetic introduction entry some episodes carry
// as a real row with an empty title.
const IntroQuestionID int64 = -1

// Question is one navigation point within an episode.
type Question struct {
	ID               int64   `json:"id"`
	Slug             string  `json:"episode_slug"`
	Lang             string  `json:"lang"`
	Time             float64 `json:"time"` // seconds from episode start
	Title            string  `json:"title"`
	IsIntro          bool    `json:"is_intro"`
	IsFullTranscript bool    `json:"is_full_transcript"`
}

// PositionEvent is one tick of the playback position stream.
type PositionEvent struct {
	Time   float64 // seconds
	Paused bool
}

// QuestionTracker resolves which question the playback cursor is inside.
// Notifications are edge-triggered: Advance reports a change only when the
// resolved title differs from the previously reported one.
type QuestionTracker struct {
	eligible   []Question // filtered and sorted by time
	introTitle string
	lastTitle  string
	emitted    bool
}

// NewQuestionTracker builds a tracker over the question set of one
// (episode, language). introTitle is the localized label reported before
// the first real question is reached.
func NewQuestionTracker(questions []Question, introTitle string) *QuestionTracker {
	qt := &QuestionTracker{introTitle: introTitle}
	qt.SetQuestions(questions)
	return qt
}

// SetQuestions replaces the question set, keeping the emitted-title state so
// a refetch does not re-announce the current question.
func (qt *QuestionTracker) SetQuestions(questions []Question) {
	eligible := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Title == "" && !q.IsIntro && !q.IsFullTranscript && q.ID != IntroQuestionID {
			continue
		}
		eligible = append(eligible, q)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Time < eligible[j].Time })
	qt.eligible = eligible
}

// Advance feeds the tracker a new playback time. It returns the active title
// and whether it changed since the last report. NaN and negative times are
// transient glitches; they leave the state untouched.
func (qt *QuestionTracker) Advance(t float64) (string, bool) {
	if math.IsNaN(t) || t < 0 {
		return qt.lastTitle, false
	}

	title := qt.resolve(t)
	if qt.emitted && title == qt.lastTitle {
		return title, false
	}
	qt.lastTitle = title
	qt.emitted = true
	return title, true
}

// Active returns the last reported title without advancing.
func (qt *QuestionTracker) Active() string { return qt.lastTitle }

// resolve picks the last eligible question at or before t, or the intro
// label when playback has not reached the first question yet.
func (qt *QuestionTracker) resolve(t float64) string {
	active := ""
	found := false
	for _, q := range qt.eligible {
		if q.Time > t {
			break
		}
		active = qt.titleOf(q)
		found = true
	}
	if !found {
		return qt.introTitle
	}
	return active
}

func (qt *QuestionTracker) titleOf(q Question) string {
	if q.Title == "" {
		// Intro and full-transcript placeholders surface the intro label.
		return qt.introTitle
	}
	return q.Title
}
