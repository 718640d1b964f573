package locale

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	fsys := fstest.MapFS{
		"locales/ru.json": {Data: []byte(`{
			"introduction": "Вступление",
			"greeting": "Привет, {name}!",
			"questions_count_one": "{count} вопрос",
			"questions_count_few": "{count} вопроса",
			"questions_count_many": "{count} вопросов",
			"ru_only": "только по-русски"
		}`)},
		"locales/en.json": {Data: []byte(`{
			"introduction": "Introduction",
			"greeting": "Hello, {name}!",
			"questions_count_one": "{count} question",
			"questions_count_many": "{count} questions",
			"bare_plural": "some amount"
		}`)},
		"locales/pl.json": {Data: []byte(`{
			"questions_count_one": "{count} pytanie",
			"questions_count_few": "{count} pytania",
			"questions_count_many": "{count} pytań"
		}`)},
	}
	r, err := New(fsys, "locales", "ru", zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

// ── Resolve ──────────────────────────────────────────────────────────

func TestResolve(t *testing.T) {
	r := testResolver(t)

	t.Run("direct_hit", func(t *testing.T) {
		if got := r.Resolve("introduction", "en", nil); got != "Introduction" {
			t.Errorf("got %q, want Introduction", got)
		}
	})

	t.Run("unknown_lang_falls_back_to_default", func(t *testing.T) {
		if got := r.Resolve("introduction", "xx", nil); got != "Вступление" {
			t.Errorf("got %q, want default-language value", got)
		}
	})

	t.Run("empty_lang_falls_back_to_default", func(t *testing.T) {
		if got := r.Resolve("introduction", "", nil); got != "Вступление" {
			t.Errorf("got %q, want default-language value", got)
		}
	})

	t.Run("missing_key_falls_back_to_default_table", func(t *testing.T) {
		if got := r.Resolve("ru_only", "en", nil); got != "только по-русски" {
			t.Errorf("got %q, want default-language value", got)
		}
	})

	t.Run("missing_everywhere_returns_key", func(t *testing.T) {
		if got := r.Resolve("no.such.key", "en", nil); got != "no.such.key" {
			t.Errorf("got %q, want the key itself", got)
		}
	})

	t.Run("param_substitution", func(t *testing.T) {
		got := r.Resolve("greeting", "en", map[string]any{"name": "Ana"})
		if got != "Hello, Ana!" {
			t.Errorf("got %q, want Hello, Ana!", got)
		}
	})

	t.Run("unmatched_placeholder_left_alone", func(t *testing.T) {
		got := r.Resolve("greeting", "en", map[string]any{"other": "x"})
		if !strings.Contains(got, "{name}") {
			t.Errorf("got %q, want {name} preserved", got)
		}
	})

	t.Run("non_string_param_coerced", func(t *testing.T) {
		got := r.Resolve("greeting", "en", map[string]any{"name": 42})
		if got != "Hello, 42!" {
			t.Errorf("got %q, want Hello, 42!", got)
		}
	})
}

// ── ResolvePlural ────────────────────────────────────────────────────

func TestResolvePluralRussian(t *testing.T) {
	r := testResolver(t)

	cases := []struct {
		count int
		want  string
	}{
		{1, "1 вопрос"},
		{3, "3 вопроса"},
		{4, "4 вопроса"},
		{10, "10 вопросов"},
		{100, "100 вопросов"},
	}
	for _, tc := range cases {
		if got := r.ResolvePlural("questions_count", "ru", tc.count, nil); got != tc.want {
			t.Errorf("count %d: got %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestResolvePluralPolish(t *testing.T) {
	r := testResolver(t)

	cases := []struct {
		count int
		want  string
	}{
		{1, "1 pytanie"},
		{2, "2 pytania"},
		{22, "22 pytania"}, // last digit 2, hundred-remainder 22 outside [10,20)
		{12, "12 pytań"},   // hundred-remainder 12 inside [10,20)
		{5, "5 pytań"},
	}
	for _, tc := range cases {
		if got := r.ResolvePlural("questions_count", "pl", tc.count, nil); got != tc.want {
			t.Errorf("count %d: got %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestResolvePluralTwoWay(t *testing.T) {
	r := testResolver(t)

	if got := r.ResolvePlural("questions_count", "en", 1, nil); got != "1 question" {
		t.Errorf("count 1: got %q", got)
	}
	if got := r.ResolvePlural("questions_count", "en", 7, nil); got != "7 questions" {
		t.Errorf("count 7: got %q", got)
	}
}

func TestResolvePluralFallbacks(t *testing.T) {
	r := testResolver(t)

	t.Run("unknown_lang_uses_default", func(t *testing.T) {
		if got := r.ResolvePlural("questions_count", "xx", 1, nil); got != "1 вопрос" {
			t.Errorf("got %q, want default-language one form", got)
		}
	})

	t.Run("missing_suffix_falls_back_to_bare_key", func(t *testing.T) {
		// bare_plural has no _one/_many forms anywhere; en table has the bare key.
		got := r.ResolvePlural("bare_plural", "en", 2, nil)
		if got != "some amount" {
			t.Errorf("got %q, want bare key value", got)
		}
	})

	t.Run("missing_entirely_returns_key_base", func(t *testing.T) {
		got := r.ResolvePlural("ghost", "en", 2, nil)
		if got != "ghost" {
			t.Errorf("got %q, want ghost", got)
		}
	})
}

// ── Table ────────────────────────────────────────────────────────────

func TestTableMergesDefault(t *testing.T) {
	r := testResolver(t)

	table := r.Table("en")
	if table["introduction"] != "Introduction" {
		t.Errorf("introduction = %q, want english value", table["introduction"])
	}
	// Key absent from en fills in from the default language.
	if table["ru_only"] != "только по-русски" {
		t.Errorf("ru_only = %q, want default-language value", table["ru_only"])
	}
}

func TestNewRejectsMissingDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{}`)},
	}
	if _, err := New(fsys, "locales", "ru", zerolog.Nop()); err == nil {
		t.Error("expected error for missing default language table")
	}
}
