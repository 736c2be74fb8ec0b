// Package i18n provides key-based UI strings for the supported languages.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Fallback is the language every lookup falls back to
const Fallback = "en"

// Language describes a selectable UI language
type Language struct {
	Code string
	Name string
	RTL  bool
}

var known = map[string]Language{
	"en": {Code: "en", Name: "English"},
	"fr": {Code: "fr", Name: "Français"},
	"ar": {Code: "ar", Name: "العربية", RTL: true},
}

// Translator looks strings up by key with English fallback
type Translator struct {
	catalogs map[string]map[string]string
	codes    []string
	matcher  language.Matcher
}

// New loads the embedded locale catalogs
func New() (*Translator, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}

	t := &Translator{catalogs: make(map[string]map[string]string)}
	for _, e := range entries {
		code := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		raw, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", code, err)
		}
		var catalog map[string]string
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", code, err)
		}
		t.catalogs[code] = catalog
	}

	if _, ok := t.catalogs[Fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", Fallback)
	}

	// fallback first so the matcher prefers it on ties
	t.codes = append(t.codes, Fallback)
	var rest []string
	for code := range t.catalogs {
		if code != Fallback {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	t.codes = append(t.codes, rest...)

	tags := make([]language.Tag, len(t.codes))
	for i, code := range t.codes {
		tags[i] = language.Make(code)
	}
	t.matcher = language.NewMatcher(tags)

	return t, nil
}

// T returns the string for key in lang. Args are applied with fmt.Sprintf.
func (t *Translator) T(lang, key string, args ...any) string {
	s, ok := t.catalogs[lang][key]
	if !ok {
		s, ok = t.catalogs[Fallback][key]
	}
	if !ok {
		s = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

// Has reports whether key exists in the fallback catalog
func (t *Translator) Has(key string) bool {
	_, ok := t.catalogs[Fallback][key]
	return ok
}

// Normalize returns code if it is supported, else the fallback
func (t *Translator) Normalize(code string) string {
	if _, ok := t.catalogs[code]; ok {
		return code
	}
	return Fallback
}

// Negotiate picks the best supported language for an Accept-Language header
func (t *Translator) Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Fallback
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return Fallback
	}
	return t.codes[idx]
}

// Languages lists supported languages, fallback first
func (t *Translator) Languages() []Language {
	out := make([]Language, 0, len(t.codes))
	for _, code := range t.codes {
		l, ok := known[code]
		if !ok {
			l = Language{Code: code, Name: code}
		}
		out = append(out, l)
	}
	return out
}

// IsRTL reports whether lang is written right to left
func (t *Translator) IsRTL(lang string) bool {
	return known[lang].RTL
}

type ctxKey struct{}

// WithLanguage stores the request language in ctx
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// FromContext returns the request language, or the fallback
func FromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return Fallback
}
