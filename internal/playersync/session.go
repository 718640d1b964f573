package playersync

import "math"

// Session couples the two trackers for one playback view and owns the
// episode duration. It is single-goroutine by contract: the view that
// created it feeds it position events in order, latest wins.
type Session struct {
	Questions  *QuestionTracker
	Utterances *UtteranceTracker
	duration   float64
}

// NewSession builds a session over a question set and transcript.
func NewSession(qt *QuestionTracker, ut *UtteranceTracker) *Session {
	return &Session{Questions: qt, Utterances: ut}
}

// SetDuration records the episode duration. NaN and non-positive values are
// reported glitches from the media element and are ignored.
func (s *Session) SetDuration(d float64) {
	if math.IsNaN(d) || d <= 0 {
		return
	}
	s.duration = d
}

// Duration returns the last accepted duration, 0 if none yet.
func (s *Session) Duration() float64 { return s.duration }

// Change describes what moved on one tick.
type Change struct {
	Title          string
	TitleChanged   bool
	UtteranceStart int64
	HasUtterance   bool
	UtterChanged   bool
}

// Advance feeds one position event to both trackers. The question highlight
// follows the cursor even while paused; only the utterance clears on pause.
func (s *Session) Advance(ev PositionEvent) Change {
	title, titleChanged := s.Questions.Advance(ev.Time)
	u, uChanged := s.Utterances.Advance(ev)

	c := Change{Title: title, TitleChanged: titleChanged, UtterChanged: uChanged}
	if u != nil {
		c.HasUtterance = true
		c.UtteranceStart = u.Start
	}
	return c
}
