// Package localization provides the message catalog used for notification text.
// Catalogs are JSON files named by language code (e.g. "en.json"); the
// English catalog is embedded in the binary and can be overridden from disk.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

// DefaultLang is used when a key is missing in the requested language.
const DefaultLang = "en"

// Catalog keys.
const (
	KeyStatusUpdated = "notification.status_updated"
	KeyAssigned      = "notification.assigned"
	KeyCommentAdded  = "notification.comment_added"
)

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// Default returns a Localizer loaded from the embedded catalogs.
func Default() *Localizer {
	l, err := Load(embedded, "locales")
	if err != nil {
		panic(fmt.Sprintf("embedded locales are invalid: %v", err))
	}
	return l
}

// NewLocalizer loads the embedded catalogs and then overlays every catalog found in dir.
func NewLocalizer(dir string) (*Localizer, error) {
	l := Default()
	if dir == "" {
		return l, nil
	}
	if err := l.loadDir(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads every *.json catalog in dir of fsys.
func Load(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}
	if err := l.loadDir(fsys, dir); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Localizer) loadDir(fsys fs.FS, dir string) error {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read localization directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		if l.translations[lang] == nil {
			l.translations[lang] = make(map[string]string, len(translations))
		}
		for k, v := range translations {
			l.translations[lang][k] = v
		}
	}
	return nil
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

	if lang != DefaultLang {
		if enTranslations, ok := l.translations[DefaultLang]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format looks up key and fills its fmt verbs with args.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}
