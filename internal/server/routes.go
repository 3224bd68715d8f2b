package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/environment"
	"github.com/danmuck/deskctl/internal/layout"
	"github.com/danmuck/deskctl/internal/opensearch"
	"github.com/danmuck/deskctl/internal/output/headermeta"
	"github.com/danmuck/deskctl/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.app.Config.ProductName,
			"version": s.app.Config.Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Appeared).String(),
			"objects": s.app.Objects.Names(),
		})
	})

	r.GET("/support/environment", s.handleEnvironment)
	r.GET("/agent/header", s.handleHeader)
	r.GET("/agent/opensearch/:kind", func(c *gin.Context) {
		s.writeOpenSearch(c, c.Param("kind"))
	})
	r.POST("/agent/sessions", s.handleCreateSession)
	r.DELETE("/agent/sessions/:id", s.handleDeleteSession)
	r.GET(config.BaselinkPath(s.app.Config.Frontend.Baselink), s.handleBaselink)
}

func (s *Server) handleEnvironment(c *gin.Context) {
	format, err := environment.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	probe, err := s.app.Environment()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	report, err := probe.Report(c.Request.Context(), environment.ReportOptions{
		BundledModules: c.Query("modules") == "1" || c.Query("modules") == "true",
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	switch format {
	case environment.FormatYAML:
		c.Header("Content-Type", "application/yaml; charset=utf-8")
	case environment.FormatText:
		c.Header("Content-Type", "text/plain; charset=utf-8")
	default:
		c.Header("Content-Type", "application/json; charset=utf-8")
	}
	c.Status(http.StatusOK)
	if err := report.Write(c.Writer, format); err != nil {
		log.Error().Err(err).Msg("environment report write failed")
	}
}

// requestLayout builds the per-request layout. The session id comes from the
// session cookie or, for cookieless sessions, from the link parameters.
func (s *Server) requestLayout(c *gin.Context) (*layout.Layout, error) {
	tr, err := s.app.Translator()
	if err != nil {
		return nil, err
	}
	cfg := s.app.Config
	params := parseLinkQuery(c.Request.URL.RawQuery)

	sessionID := params.Get(cfg.Session.Name)
	if cfg.Session.UseCookie {
		if cookie, err := c.Cookie(cfg.Session.Name); err == nil {
			sessionID = cookie
		}
	}

	pref := params.Get("lang")
	if pref == "" {
		pref = c.GetHeader("Accept-Language")
	}
	if pref == "" {
		pref = cfg.DefaultLanguage
	}

	return layout.New(layout.Options{
		Baselink:    cfg.Frontend.Baselink,
		SessionID:   sessionID,
		SessionName: cfg.Session.Name,
		Language:    tr.Match(pref),
		Translator:  tr,
	}), nil
}

func (s *Server) handleHeader(c *gin.Context) {
	l, err := s.requestLayout(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	reg, err := s.app.Outputs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	// Plugin failures are logged by the registry; the page still renders.
	if err := reg.RunHeaderMeta(ctx, l); err != nil {
		_ = c.Error(err)
	}
	notes, err := reg.RunNotifications(ctx, l)
	if err != nil {
		_ = c.Error(err)
	}
	meta, err := l.Render(layout.BlockMetaLink)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var b strings.Builder
	b.WriteString(meta)
	for _, n := range notes {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

func (s *Server) writeOpenSearch(c *gin.Context, rawKind string) {
	kind, err := opensearch.ParseKind(rawKind)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	l, err := s.requestLayout(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cfg := s.app.Config

	label := cfg.Ticket.Hook
	description := l.Translate("Search tickets by number")
	if kind == opensearch.KindFulltext {
		label = l.Translate("Fulltext")
		description = l.Translate("Search tickets by full text")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	doc, err := opensearch.Build(kind, opensearch.Params{
		Base:        scheme + "://" + cfg.FQDN + cfg.Frontend.Baselink,
		Action:      cfg.HeaderMeta.AgentTicketSearch.Action,
		Title:       cfg.ProductName + " (" + label + ")",
		Description: description,
		Session:     l.SessionSuffix(cfg.Session.UseCookie),
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	body, err := doc.Marshal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, opensearch.ContentType+"; charset=utf-8", body)
}

// handleBaselink serves the targets of the search meta links:
// <baselink>Action=AgentTicketSearch;Subaction=OpenSearchDescription*.
func (s *Server) handleBaselink(c *gin.Context) {
	params := parseLinkQuery(c.Request.URL.RawQuery)
	action := params.Get("Action")
	subaction := params.Get("Subaction")

	searchAction := s.app.Config.HeaderMeta.AgentTicketSearch.Action
	if searchAction == "" {
		searchAction = headermeta.DefaultAction
	}
	if action != searchAction || !strings.HasPrefix(subaction, "OpenSearchDescription") {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action"})
		return
	}
	s.writeOpenSearch(c, subaction)
}

type createSessionRequest struct {
	Login    string `json:"login" binding:"required"`
	UserType string `json:"user_type"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	store, err := s.app.Sessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	id, err := store.Create(c.Request.Context(), session.Session{UserLogin: req.Login, UserType: req.UserType})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidSession) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	cfg := s.app.Config
	if cfg.Session.UseCookie {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.Session.Name, id, int(cfg.Session.MaxIdleTime.Seconds()), "/", "", c.Request.TLS != nil, true)
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	store, err := s.app.Sessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// parseLinkQuery parses query strings that separate pairs with ';' as well
// as '&'. net/url rejects ';' separators.
func parseLinkQuery(raw string) url.Values {
	out := url.Values{}
	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		out.Add(k, v)
	}
	return out
}
