// Package headermeta holds the HeaderMeta::* output plugins.
package headermeta

import (
	"context"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/layout"
	"github.com/danmuck/deskctl/internal/output"
)

const (
	ModuleAgentTicketSearch = "HeaderMeta::AgentTicketSearch"

	DefaultAction = "AgentTicketSearch"

	SubactionTicketNumber = "OpenSearchDescriptionTicketNumber"
	SubactionFulltext     = "OpenSearchDescriptionFulltext"

	openSearchType = "application/opensearchdescription+xml"
)

// AgentTicketSearch advertises the two ticket search OpenSearch descriptions.
type AgentTicketSearch struct {
	ProductName      string
	TicketHook       string
	SessionUseCookie bool
}

func NewAgentTicketSearch(cfg config.Config) *AgentTicketSearch {
	return &AgentTicketSearch{
		ProductName:      cfg.ProductName,
		TicketHook:       cfg.Ticket.Hook,
		SessionUseCookie: cfg.Session.UseCookie,
	}
}

var _ output.HeaderMeta = (*AgentTicketSearch)(nil)

func (p *AgentTicketSearch) Run(_ context.Context, l *layout.Layout, cfg output.PluginConfig) error {
	action := cfg.Param("Action", DefaultAction)
	session := l.SessionSuffix(p.SessionUseCookie)

	l.Block(layout.BlockMetaLink, map[string]string{
		"Rel":   "search",
		"Type":  openSearchType,
		"Title": p.ProductName + " (" + p.TicketHook + ")",
		"Href":  l.Baselink + "Action=" + action + ";Subaction=" + SubactionTicketNumber + session,
	})

	l.Block(layout.BlockMetaLink, map[string]string{
		"Rel":   "search",
		"Type":  openSearchType,
		"Title": p.ProductName + " (" + l.Translate("Fulltext") + ")",
		"Href":  l.Baselink + "Action=" + action + ";Subaction=" + SubactionFulltext + session,
	})
	return nil
}
