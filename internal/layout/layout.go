// Package layout assembles request-scoped HTML fragments.
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/danmuck/deskctl/internal/i18n"
	"golang.org/x/text/language"
)

var ErrUnknownBlock = errors.New("unknown layout block")

type Priority string

const (
	PriorityInfo   Priority = "Info"
	PriorityNotice Priority = "Notice"
	PriorityError  Priority = "Error"
)

// Notify is one notification box.
type Notify struct {
	Priority Priority
	Data     string
	Link     string
}

const (
	BlockMetaLink = "MetaLink"
)

var blockTemplates = template.Must(template.New("blocks").Parse(
	`{{define "MetaLink"}}<link rel="{{.Rel}}" type="{{.Type}}" title="{{.Title}}" href="{{.Href}}"/>{{end}}` +
		`{{define "Notify"}}<div class="MessageBox {{.Priority}}"><p>{{if .Link}}<a href="{{.Link}}">{{.Data}}</a>{{else}}{{.Data}}{{end}}</p></div>{{end}}`,
))

type Options struct {
	Baselink    string
	SessionID   string
	SessionName string
	Language    language.Tag
	Translator  *i18n.Translator
}

type block struct {
	name string
	data map[string]string
}

// Layout is scoped to a single request and not reused across requests.
type Layout struct {
	Baselink    string
	SessionID   string
	SessionName string
	Language    language.Tag

	translator *i18n.Translator

	mu     sync.Mutex
	blocks []block
}

func New(opts Options) *Layout {
	lang := opts.Language
	if lang == language.Und {
		lang = language.English
	}
	return &Layout{
		Baselink:    opts.Baselink,
		SessionID:   opts.SessionID,
		SessionName: opts.SessionName,
		Language:    lang,
		translator:  opts.Translator,
	}
}

// Block queues a named block with its data.
func (l *Layout) Block(name string, data map[string]string) {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = append(l.blocks, block{name: name, data: copied})
}

// Blocks returns the queued data for name in insertion order.
func (l *Layout) Blocks(name string) []map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]string
	for _, b := range l.blocks {
		if b.name == name {
			out = append(out, b.data)
		}
	}
	return out
}

// Render renders every queued block of name, one per line.
func (l *Layout) Render(name string) (string, error) {
	tmpl := blockTemplates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownBlock, name)
	}
	var buf bytes.Buffer
	for _, data := range l.Blocks(name) {
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// Translate renders text in the layout language.
func (l *Layout) Translate(text string, args ...any) string {
	if l.translator == nil {
		if len(args) == 0 {
			return text
		}
		return fmt.Sprintf(text, args...)
	}
	return l.translator.Translate(l.Language, text, args...)
}

// TranslateText translates text without treating it as a format string.
func (l *Layout) TranslateText(text string) string {
	if l.translator == nil {
		return text
	}
	return l.translator.Lookup(l.Language, text)
}

// Notify renders a notification box. Data is escaped.
func (l *Layout) Notify(n Notify) string {
	if n.Priority == "" {
		n.Priority = PriorityInfo
	}
	var buf strings.Builder
	if err := blockTemplates.ExecuteTemplate(&buf, "Notify", n); err != nil {
		return ""
	}
	return buf.String()
}

// SessionSuffix is the ";<SessionName>=<SessionID>" link parameter used when
// sessions are not carried in a cookie. It is empty otherwise.
func (l *Layout) SessionSuffix(useCookie bool) string {
	if useCookie {
		return ""
	}
	return ";" + l.SessionName + "=" + l.SessionID
}
