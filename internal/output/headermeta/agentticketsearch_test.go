package headermeta

import (
	"context"
	"strings"
	"testing"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/i18n"
	"github.com/danmuck/deskctl/internal/layout"
	"github.com/danmuck/deskctl/internal/output"
	"github.com/danmuck/deskctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func newLayout(t *testing.T, lang language.Tag) *layout.Layout {
	t.Helper()
	tr, err := i18n.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return layout.New(layout.Options{
		Baselink:    "/desk/index?",
		SessionID:   "s3ss10n",
		SessionName: "DeskSessionID",
		Language:    lang,
		Translator:  tr,
	})
}

func TestRunEmitsTwoMetaLinksWithCookieSessions(t *testing.T) {
	testlog.Start(t)
	cfg := config.Default()
	p := NewAgentTicketSearch(cfg)
	l := newLayout(t, language.English)

	if err := p.Run(context.Background(), l, output.PluginConfig{Module: ModuleAgentTicketSearch}); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []map[string]string{
		{
			"Rel":   "search",
			"Type":  "application/opensearchdescription+xml",
			"Title": "Service Desk (Ticket#)",
			"Href":  "/desk/index?Action=AgentTicketSearch;Subaction=OpenSearchDescriptionTicketNumber",
		},
		{
			"Rel":   "search",
			"Type":  "application/opensearchdescription+xml",
			"Title": "Service Desk (Fulltext)",
			"Href":  "/desk/index?Action=AgentTicketSearch;Subaction=OpenSearchDescriptionFulltext",
		},
	}
	if diff := cmp.Diff(want, l.Blocks(layout.BlockMetaLink)); diff != "" {
		t.Fatalf("meta links mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAppendsSessionWithoutCookiesAndTranslates(t *testing.T) {
	testlog.Start(t)
	cfg := config.Default()
	cfg.Session.UseCookie = false
	cfg.ProductName = "Acme"
	p := NewAgentTicketSearch(cfg)
	l := newLayout(t, language.German)

	pc := output.PluginConfig{Module: ModuleAgentTicketSearch, Params: map[string]string{"Action": "CustomSearch"}}
	if err := p.Run(context.Background(), l, pc); err != nil {
		t.Fatalf("run: %v", err)
	}

	blocks := l.Blocks(layout.BlockMetaLink)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if got := blocks[0]["Href"]; got != "/desk/index?Action=CustomSearch;Subaction=OpenSearchDescriptionTicketNumber;DeskSessionID=s3ss10n" {
		t.Fatalf("unexpected ticket number href %q", got)
	}
	if got := blocks[1]["Title"]; got != "Acme (Volltext)" {
		t.Fatalf("unexpected fulltext title %q", got)
	}
	if !strings.HasSuffix(blocks[1]["Href"], ";DeskSessionID=s3ss10n") {
		t.Fatalf("fulltext href missing session: %q", blocks[1]["Href"])
	}

	html, err := l.Render(layout.BlockMetaLink)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(html, "<link ") != 2 {
		t.Fatalf("expected two link tags, got %s", html)
	}
}
