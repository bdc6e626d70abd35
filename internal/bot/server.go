package bot

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/umbcsclub/eventbot/config"
	"github.com/umbcsclub/eventbot/internal/domain"
	"github.com/umbcsclub/eventbot/internal/logger"
	"github.com/umbcsclub/eventbot/internal/service"
)

// EventResponse is the JSON shape of an event in one language.
type EventResponse struct {
	ID          string    `json:"id"`
	Language    string    `json:"language"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
}

type envelope struct {
	Data  interface{}   `json:"data,omitempty"`
	Error *errorPayload `json:"error,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type httpHandler struct {
	events   *service.EventService
	calendar *service.CalendarService
	logger   *zap.Logger
}

// newRouter builds the HTTP surface: webhook, health, metrics, the ICS feed
// and the read API. webhook is nil when the bot long-polls.
func newRouter(cfg *config.Config, events *service.EventService, calendar *service.CalendarService, metrics *service.MetricsService, l *zap.Logger, webhook gin.HandlerFunc) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(l), metricsMiddleware(metrics))

	h := &httpHandler{events: events, calendar: calendar, logger: l}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/events.ics", h.feed)

	if webhook != nil {
		r.POST("/bot", webhook)
	}

	// API disabled if no credentials
	if cfg.APIUsername != "" && cfg.APIPassword != "" {
		api := r.Group("/api", gin.BasicAuthForRealm(gin.Accounts{cfg.APIUsername: cfg.APIPassword}, "Event Bot API"))
		api.GET("/events", h.listEvents)
		api.GET("/events/:id", h.getEvent)
	}

	return r
}

func metricsMiddleware(m *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// GET /events.ics?lang=xx
func (h *httpHandler) feed(c *gin.Context) {
	lang := c.DefaultQuery("lang", h.events.ReferenceLanguage())
	if err := h.events.ResolveLanguage(c.Request.Context(), lang); err != nil {
		h.error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.calendar.WriteFeed(c.Request.Context(), &buf, lang); err != nil {
		h.error(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// GET /api/events?lang=xx
func (h *httpHandler) listEvents(c *gin.Context) {
	h.respondEvents(c, "", c.Query("lang"), false)
}

// GET /api/events/:id?lang=xx
func (h *httpHandler) getEvent(c *gin.Context) {
	h.respondEvents(c, c.Param("id"), c.Query("lang"), true)
}

func (h *httpHandler) respondEvents(c *gin.Context, id, lang string, single bool) {
	events, lang, err := h.events.ListEvents(c.Request.Context(), id, lang)
	if err != nil {
		h.error(c, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e, lang, h.events.ReferenceLanguage()))
	}

	c.Header("Cache-Control", "no-store")
	if single {
		if len(out) == 0 {
			h.error(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, envelope{Data: out[0]})
		return
	}
	c.JSON(http.StatusOK, envelope{Data: out})
}

func (h *httpHandler) error(c *gin.Context, err error) {
	appErr := domain.FromError(err)
	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, envelope{Error: &errorPayload{Code: appErr.Code, Message: appErr.Message}})
}

func statusFor(code string) int {
	switch code {
	case domain.CodeValidation, domain.CodeUnsupportedLanguage:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(e *domain.Event, lang, refLang string) EventResponse {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return EventResponse{
		ID:          e.ID,
		Language:    lang,
		Title:       e.Title.Get(lang, refLang),
		Description: e.Description.Get(lang, refLang),
		Location:    e.Location.Get(lang, refLang),
		Start:       e.Start,
		End:         e.End,
		Attendees:   attendees,
	}
}
