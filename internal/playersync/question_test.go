package playersync

import (
	"math"
	"testing"
)

const introLabel = "Introduction"

func episodeQuestions() []Question {
	return []Question{
		// Stored out of order on purpose; tracker must sort.
		{ID: 3, Time: 90, Title: "Q2"},
		{ID: 1, Time: 0, Title: "", IsIntro: true},
		{ID: 2, Time: 30, Title: "Q1"},
	}
}

// ── Active question resolution ───────────────────────────────────────

func TestQuestionTrackerAdvance(t *testing.T) {
	t.Run("between_questions_selects_last_started", func(t *testing.T) {
		qt := NewQuestionTracker(episodeQuestions(), introLabel)
		title, changed := qt.Advance(45)
		if title != "Q1" || !changed {
			t.Errorf("Advance(45) = %q %v, want Q1 true", title, changed)
		}
	})

	t.Run("before_first_titled_question_yields_intro", func(t *testing.T) {
		qt := NewQuestionTracker(episodeQuestions(), introLabel)
		title, _ := qt.Advance(10)
		if title != introLabel {
			t.Errorf("Advance(10) = %q, want %q", title, introLabel)
		}
	})

	t.Run("past_last_question", func(t *testing.T) {
		qt := NewQuestionTracker(episodeQuestions(), introLabel)
		title, _ := qt.Advance(300)
		if title != "Q2" {
			t.Errorf("Advance(300) = %q, want Q2", title)
		}
	})

	t.Run("exact_boundary_is_inclusive", func(t *testing.T) {
		qt := NewQuestionTracker(episodeQuestions(), introLabel)
		title, _ := qt.Advance(30)
		if title != "Q1" {
			t.Errorf("Advance(30) = %q, want Q1", title)
		}
	})

	t.Run("no_questions_at_all_yields_intro", func(t *testing.T) {
		qt := NewQuestionTracker(nil, introLabel)
		title, _ := qt.Advance(50)
		if title != introLabel {
			t.Errorf("Advance(50) = %q, want %q", title, introLabel)
		}
	})
}

func TestQuestionTrackerEdgeTriggered(t *testing.T) {
	qt := NewQuestionTracker(episodeQuestions(), introLabel)

	_, changed := qt.Advance(45)
	if !changed {
		t.Fatal("first tick should report a change")
	}
	for _, tick := range []float64{46, 50, 89.9} {
		if _, changed := qt.Advance(tick); changed {
			t.Errorf("Advance(%v) reported change inside the same question", tick)
		}
	}
	title, changed := qt.Advance(90)
	if title != "Q2" || !changed {
		t.Errorf("Advance(90) = %q %v, want Q2 true", title, changed)
	}
}

func TestQuestionTrackerInvalidTime(t *testing.T) {
	qt := NewQuestionTracker(episodeQuestions(), introLabel)
	qt.Advance(45)

	title, changed := qt.Advance(-5)
	if title != "Q1" || changed {
		t.Errorf("Advance(-5) = %q %v, want previous title Q1 and no change", title, changed)
	}
	title, changed = qt.Advance(math.NaN())
	if title != "Q1" || changed {
		t.Errorf("Advance(NaN) = %q %v, want previous title Q1 and no change", title, changed)
	}
}

func TestQuestionTrackerBlankTitleFiltering(t *testing.T) {
	t.Run("blank_unflagged_excluded", func(t *testing.T) {
		qt := NewQuestionTracker([]Question{
			{ID: 5, Time: 10, Title: ""},
			{ID: 6, Time: 40, Title: "Real"},
		}, introLabel)
		title, _ := qt.Advance(20)
		if title != introLabel {
			t.Errorf("Advance(20) = %q, want intro label (blank suppressed)", title)
		}
	})

	t.Run("blank_intro_flagged_kept", func(t *testing.T) {
		qt := NewQuestionTracker([]Question{
			{ID: 5, Time: 0, Title: "", IsIntro: true},
			{ID: 6, Time: 40, Title: "Real"},
		}, introLabel)
		title, _ := qt.Advance(20)
		if title != introLabel {
			t.Errorf("Advance(20) = %q, want intro label via flagged entry", title)
		}
	})

	t.Run("blank_full_transcript_flagged_kept", func(t *testing.T) {
		qt := NewQuestionTracker([]Question{
			{ID: 5, Time: 0, Title: "", IsFullTranscript: true},
		}, introLabel)
		title, _ := qt.Advance(5)
		if title != introLabel {
			t.Errorf("Advance(5) = %q, want intro label", title)
		}
	})

	t.Run("sentinel_id_kept", func(t *testing.T) {
		qt := NewQuestionTracker([]Question{
			{ID: IntroQuestionID, Time: 0, Title: ""},
			{ID: 6, Time: 40, Title: "Real"},
		}, introLabel)
		title, _ := qt.Advance(41)
		if title != "Real" {
			t.Errorf("Advance(41) = %q, want Real", title)
		}
	})
}

func TestQuestionTrackerRefetchKeepsEmitState(t *testing.T) {
	qt := NewQuestionTracker(episodeQuestions(), introLabel)
	qt.Advance(45)

	// Realtime refetch delivers the same set again.
	qt.SetQuestions(episodeQuestions())
	if _, changed := qt.Advance(46); changed {
		t.Error("refetch with same data re-announced the active question")
	}
}
