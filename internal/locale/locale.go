// Package locale resolves translated UI strings with parameter substitution
// and per-language plural rules. Tables are loaded once at startup and never
// mutated afterwards.
package locale

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver maps (language, key) to a translated string. A missing key falls
// back to the default language, then to the key itself; Resolve never fails.
type Resolver struct {
	tables      map[string]map[string]string
	defaultLang string
	log         zerolog.Logger
}

// New loads all locale tables from dir (one <lang>.json per language) and
// returns an immutable resolver. defaultLang must have a table.
func New(files fs.FS, dir, defaultLang string, log zerolog.Logger) (*Resolver, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read locale dir %s: %w", dir, err)
	}

	tables := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		data, err := fs.ReadFile(files, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), err)
		}
		tables[lang] = table
	}

	if _, ok := tables[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale table", defaultLang)
	}

	return &Resolver{
		tables:      tables,
		defaultLang: defaultLang,
		log:         log.With().Str("component", "locale").Logger(),
	}, nil
}

// Languages returns the supported language codes, sorted.
func (r *Resolver) Languages() []string {
	langs := make([]string, 0, len(r.tables))
	for lang := range r.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Supported reports whether lang has a locale table.
func (r *Resolver) Supported(lang string) bool {
	_, ok := r.tables[lang]
	return ok
}

// DefaultLanguage returns the configured fallback language.
func (r *Resolver) DefaultLanguage() string { return r.defaultLang }

// Table returns a copy of the full key set for lang, with the default
// language filling in any gaps. Used to serve whole tables to clients.
func (r *Resolver) Table(lang string) map[string]string {
	lang = r.normalize(lang)
	out := make(map[string]string, len(r.tables[r.defaultLang]))
	for k, v := range r.tables[r.defaultLang] {
		out[k] = v
	}
	for k, v := range r.tables[lang] {
		out[k] = v
	}
	return out
}

// Resolve returns the translation for key in lang, substituting {name}
// placeholders from params. Unknown languages fall back to the default
// language; unknown keys resolve to the key itself.
func (r *Resolver) Resolve(key, lang string, params map[string]any) string {
	lang = r.normalize(lang)
	s, ok := r.lookup(key, lang)
	if !ok {
		r.log.Warn().Str("key", key).Str("lang", lang).Msg("missing translation, returning key")
		s = key
	}
	return substitute(s, params)
}

// ResolvePlural resolves keyBase with a plural suffix derived from count
// using the language's plural rule, then substitutes params and {count}.
func (r *Resolver) ResolvePlural(keyBase, lang string, count int, params map[string]any) string {
	lang = r.normalize(lang)
	key := keyBase + "_" + pluralSuffix(lang, count)

	s, ok := r.lookup(key, lang)
	if !ok {
		r.log.Warn().Str("key", key).Str("lang", lang).Msg("missing plural form, falling back to base key")
		s, ok = r.lookup(keyBase, lang)
		if !ok {
			s = keyBase
		}
	}

	s = substitute(s, params)
	return strings.ReplaceAll(s, "{count}", fmt.Sprintf("%d", count))
}

// normalize maps an unknown or empty language to the default language.
func (r *Resolver) normalize(lang string) string {
	if _, ok := r.tables[lang]; !ok {
		if lang != "" {
			r.log.Warn().Str("lang", lang).Str("fallback", r.defaultLang).Msg("unsupported language")
		}
		return r.defaultLang
	}
	return lang
}

// lookup finds key in lang's table, then in the default language's table.
func (r *Resolver) lookup(key, lang string) (string, bool) {
	if s, ok := r.tables[lang][key]; ok {
		return s, true
	}
	if s, ok := r.tables[r.defaultLang][key]; ok {
		if lang != r.defaultLang {
			r.log.Warn().Str("key", key).Str("lang", lang).Msg("translation missing, using default language")
		}
		return s, true
	}
	return "", false
}

// substitute replaces {name} placeholders with values from params.
// Placeholders without a matching param are left untouched.
func substitute(s string, params map[string]any) string {
	for k, v := range params {
		s = strings.ReplaceAll(s, "{"+k+"}", fmt.Sprint(v))
	}
	return s
}
