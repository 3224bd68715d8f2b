package i18n

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/danmuck/deskctl/internal/testutil/testlog"
	"golang.org/x/text/language"
)

func TestTranslateEmbedded(t *testing.T) {
	testlog.Start(t)
	tr, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if got := tr.Translate(language.German, "Fulltext"); got != "Volltext" {
		t.Fatalf("expected German translation, got %q", got)
	}
	if got := tr.Translate(language.English, "Fulltext"); got != "Fulltext" {
		t.Fatalf("expected English text, got %q", got)
	}
	if got := tr.Translate(language.German, "Unknown key"); got != "Unknown key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	msg := tr.Translate(language.German, "Session limit reached! Please log out when you no longer need this session (%d of %d agent sessions in use).", 10, 10)
	if !strings.Contains(msg, "10 von 10") {
		t.Fatalf("expected formatted args, got %q", msg)
	}
}

func TestMatch(t *testing.T) {
	testlog.Start(t)
	tr, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if got := tr.Match("de-AT,de;q=0.9,en;q=0.5"); got != language.German {
		t.Fatalf("expected de, got %s", got)
	}
	if got := tr.Match("ja"); got != language.English {
		t.Fatalf("expected base locale fallback, got %s", got)
	}
	if got := tr.Match(""); got != language.English {
		t.Fatalf("expected base locale for empty preference, got %s", got)
	}
	if langs := tr.Languages(); len(langs) != 2 || langs[0] != language.English {
		t.Fatalf("unexpected languages %v", langs)
	}
}

func TestLoadFromFSValidation(t *testing.T) {
	testlog.Start(t)
	cases := map[string]fstest.MapFS{
		"empty": {},
		"mismatch": {
			"locales/en.yaml": {Data: []byte("locale: de\nmessages: {}\n")},
		},
		"no base": {
			"locales/de.yaml": {Data: []byte("locale: de\nmessages:\n  Fulltext: Volltext\n")},
		},
		"blank key": {
			"locales/en.yaml": {Data: []byte("locale: en\nmessages:\n  \" \": x\n")},
		},
		"bad yaml": {
			"locales/en.yaml": {Data: []byte("locale: [en\n")},
		},
	}
	for name, fsys := range cases {
		if _, err := LoadFromFS(fsys); err == nil {
			t.Fatalf("%s: expected load error", name)
		}
	}
}

func TestLookupNeverFormats(t *testing.T) {
	testlog.Start(t)
	tr, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if got := tr.Lookup(language.German, "Fulltext"); got != "Volltext" {
		t.Fatalf("expected German lookup, got %q", got)
	}
	if got := tr.Lookup(language.MustParse("de-AT"), "Fulltext"); got != "Volltext" {
		t.Fatalf("expected regional fallback to German, got %q", got)
	}
	if got := tr.Lookup(language.Japanese, "TicketNumber"); got != "Ticket Number" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := tr.Lookup(language.German, "90% of licenses used"); got != "90% of licenses used" {
		t.Fatalf("expected unknown key verbatim, got %q", got)
	}
}
