// Package opensearch builds the OpenSearch description documents advertised by
// the agent ticket search meta links.
package opensearch

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const (
	Namespace   = "http://a9.com/-/spec/opensearch/1.1/"
	ContentType = "application/opensearchdescription+xml"
)

type Kind string

const (
	KindTicketNumber Kind = "TicketNumber"
	KindFulltext     Kind = "Fulltext"
)

var ErrUnknownKind = errors.New("unknown opensearch description kind")

// ParseKind accepts the kind name or its OpenSearchDescription* subaction.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "OpenSearchDescription")
	switch strings.ToLower(s) {
	case "ticketnumber":
		return KindTicketNumber, nil
	case "fulltext":
		return KindFulltext, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Params is everything a description needs from config and the request.
type Params struct {
	// Base is an absolute baselink such as "https://desk.example.com/desk/index?".
	Base        string
	Action      string
	Title       string
	Description string
	// Session is appended to the search URL, see layout.SessionSuffix.
	Session string
}

type URL struct {
	Type     string `xml:"type,attr"`
	Method   string `xml:"method,attr,omitempty"`
	Template string `xml:"template,attr"`
}

type Document struct {
	XMLName       xml.Name `xml:"OpenSearchDescription"`
	Xmlns         string   `xml:"xmlns,attr"`
	ShortName     string   `xml:"ShortName"`
	Description   string   `xml:"Description"`
	InputEncoding string   `xml:"InputEncoding"`
	URL           URL      `xml:"Url"`
}

// Build returns the description document for kind.
func Build(kind Kind, p Params) (Document, error) {
	if kind != KindTicketNumber && kind != KindFulltext {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	action := p.Action
	if action == "" {
		action = "AgentTicketSearch"
	}
	desc := p.Description
	if desc == "" {
		desc = p.Title
	}
	return Document{
		Xmlns:         Namespace,
		ShortName:     shortName(p.Title),
		Description:   desc,
		InputEncoding: "UTF-8",
		URL: URL{
			Type:     "text/html",
			Method:   "get",
			Template: p.Base + "Action=" + action + ";Subaction=Search;" + string(kind) + "={searchTerms}" + p.Session,
		},
	}, nil
}

// Marshal renders the document with an XML header.
func (d Document) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// ShortName is limited to 16 characters by the OpenSearch 1.1 format.
func shortName(title string) string {
	runes := []rune(title)
	if len(runes) <= 16 {
		return title
	}
	return string(runes[:16])
}
