// Package i18n loads the embedded translation catalogs and translates UI strings.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the source language of every message key.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Translator resolves message keys against registered catalogs.
type Translator struct {
	builder  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
}

// LoadEmbedded builds a translator from the catalogs shipped with the binary.
func LoadEmbedded() (*Translator, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS reads locales/*.yaml from fsys.
func LoadFromFS(fsys fs.FS) (*Translator, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	builder := catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale)))
	seen := map[string]bool{}
	messages := map[language.Tag]map[string]string{}
	var tags []language.Tag
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, want)
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: parse locale: %w", p, err)
		}
		if seen[tag.String()] {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", p, locale)
		}
		seen[tag.String()] = true
		messages[tag] = make(map[string]string, len(file.Messages))
		for key, value := range file.Messages {
			if strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			if err := builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", p, key, err)
			}
			messages[tag][key] = value
		}
		tags = append(tags, tag)
	}
	if !seen[BaseLocale] {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	// Matcher prefers the first tag, so the base locale leads.
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].String() == BaseLocale && tags[j].String() != BaseLocale
	})
	return &Translator{
		builder:  builder,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		messages: messages,
	}, nil
}

// Languages lists the supported locales, base locale first.
func (t *Translator) Languages() []language.Tag {
	return append([]language.Tag(nil), t.tags...)
}

// Match picks the closest supported locale for a user preference such as
// "de-AT" or an Accept-Language header value.
func (t *Translator) Match(pref string) language.Tag {
	wanted, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(wanted) == 0 {
		return t.tags[0]
	}
	_, idx, _ := t.matcher.Match(wanted...)
	return t.tags[idx]
}

// Printer returns a printer bound to this translator's catalog.
func (t *Translator) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(t.builder))
}

// Translate renders key in tag. Unknown keys render as themselves.
func (t *Translator) Translate(tag language.Tag, key string, args ...any) string {
	return t.Printer(tag).Sprintf(key, args...)
}

// Lookup returns the catalog text for key in the closest supported locale,
// falling back to the base locale and then to key. The text is never
// formatted, so it is safe for caller-supplied strings.
func (t *Translator) Lookup(tag language.Tag, key string) string {
	_, idx, _ := t.matcher.Match(tag)
	if msg, ok := t.messages[t.tags[idx]][key]; ok {
		return msg
	}
	if msg, ok := t.messages[t.tags[0]][key]; ok {
		return msg
	}
	return key
}
