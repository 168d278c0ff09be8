// Package localization provides functionality for internationalization (i18n).
// Translations are JSON files named by language tag ("en.json") and are
// embedded into the binary.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
type Localizer struct {
	translations map[string]map[string]string
	matcher      language.Matcher
	tags         []string
	mu           sync.RWMutex
}

// Default returns a Localizer over the embedded translations.
func Default() (*Localizer, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return NewLocalizer(sub)
}

// NewLocalizer loads every *.json file at the root of fsys.
func NewLocalizer(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(".", file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
		l.tags = append(l.tags, lang)
	}

	// the default language goes first so the matcher falls back to it
	sort.Slice(l.tags, func(i, j int) bool {
		if l.tags[i] == DefaultLanguage || l.tags[j] == DefaultLanguage {
			return l.tags[i] == DefaultLanguage
		}
		return l.tags[i] < l.tags[j]
	})
	supported := make([]language.Tag, 0, len(l.tags))
	for _, t := range l.tags {
		supported = append(supported, language.Make(t))
	}
	l.matcher = language.NewMatcher(supported)
	return l, nil
}

// Match picks the best available language for an Accept-Language header.
func (l *Localizer) Match(acceptLanguage string) string {
	if len(l.tags) == 0 {
		return DefaultLanguage
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return l.tags[0]
	}
	_, idx, _ := l.matcher.Match(prefs...)
	return l.tags[idx]
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to a default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format is GetString followed by fmt.Sprintf.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}
