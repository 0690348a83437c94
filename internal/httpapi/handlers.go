package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/gin-gonic/gin"
)

// errorStatus maps wizard errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrInvalidValue), errors.Is(err, wizard.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrClosed):
		return http.StatusGone
	case errors.Is(err, wizard.ErrTransitionUnavailable),
		errors.Is(err, wizard.ErrFieldNotOnStep),
		errors.Is(err, wizard.ErrLocked),
		errors.Is(err, wizard.ErrBusy):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// abort writes an error body. Rejected transitions carry the unchanged state
// so clients can re-render without a second request.
func abort(c *gin.Context, err error, snap *wizard.Snapshot) {
	body := gin.H{"error": err.Error()}
	var inc *wizard.IncompleteError
	if errors.As(err, &inc) {
		body["fields"] = inc.Fields
	}
	if snap != nil && snap.SessionID != "" {
		body["state"] = snap.View()
	}
	c.AbortWithStatusJSON(errorStatus(err), body)
}

// session loads the :id session or aborts with 404.
func (s *Server) session(c *gin.Context) (*wizard.Session, bool) {
	sess, err := s.registry.Get(c.Param("id"))
	if err != nil {
		abort(c, err, nil)
		return nil, false
	}
	return sess, true
}

// reply writes the view of snap, or the error with snap as state.
func reply(c *gin.Context, status int, snap wizard.Snapshot, err error) {
	if err != nil {
		abort(c, err, &snap)
		return
	}
	c.JSON(status, snap.View())
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"time":     time.Now(),
		"sessions": len(s.registry.IDs()),
		"backend":  "ok",
	}
	if err := s.prices.Health(c.Request.Context()); err != nil {
		body["backend"] = "unreachable"
		logger.Debug("httpapi: backend health: %v", err)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleMarketPrices(c *gin.Context) {
	prices, fromBackend := s.prices.MarketPricesOrFallback(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"prices":   prices,
		"fallback": !fromBackend,
	})
}

func (s *Server) handleCheckPrice(c *gin.Context) {
	var in recommend.PriceCheckRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := s.prices.CheckPrice(c.Request.Context(), in)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, recommend.ErrInvalidPrice) {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

type createRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var opts []wizard.Option
	if req.Language != "" {
		lang, err := i18n.ParseLanguage(req.Language)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts = append(opts, wizard.WithLanguage(lang))
	}

	sess := s.registry.Create(opts...)
	c.Header("Location", "/api/v1/sessions/"+sess.ID())
	c.JSON(http.StatusCreated, sess.Snapshot().View())
}

func (s *Server) handleGet(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot().View())
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.registry.Delete(c.Param("id")); err != nil {
		abort(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type fieldRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleSetField(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	field, err := wizard.ParseField(c.Param("field"))
	if err != nil {
		abort(c, err, nil)
		return
	}
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// zero is a valid nutrient value, so presence is checked by hand
	if req.Value == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing 'value'"})
		return
	}

	snap, err := sess.SetField(field, req.Value)
	reply(c, http.StatusOK, snap, err)
}

// handleAdvance moves forward. On step 3 the submission runs in the
// background and 202 is returned, unless ?wait=true asks to block until the
// recommendation (or failure) is applied.
func (s *Server) handleAdvance(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	if sess.Snapshot().Step != wizard.StepNutrients {
		snap, err := sess.Advance(c.Request.Context())
		reply(c, http.StatusOK, snap, err)
		return
	}

	if c.Query("wait") == "true" {
		snap, err := sess.Submit(c.Request.Context())
		reply(c, http.StatusOK, snap, err)
		return
	}

	snap, _, err := sess.SubmitAsync(s.baseCtx)
	reply(c, http.StatusAccepted, snap, err)
}

func (s *Server) handleRetreat(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := sess.Retreat()
	reply(c, http.StatusOK, snap, err)
}

func (s *Server) handleRestart(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := sess.Restart()
	reply(c, http.StatusOK, snap, err)
}

func (s *Server) handleToggleLanguage(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := sess.ToggleLanguage()
	reply(c, http.StatusOK, snap, err)
}

func (s *Server) handleLabels(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.Header("Content-Language", sess.Snapshot().Language.Tag().String())
	c.JSON(http.StatusOK, sess.Labels())
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.log == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "snapshot events are disabled"})
		return
	}
	if _, ok := s.session(c); !ok {
		return
	}
	history, err := s.log.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if history == nil {
		history = []wizard.Snapshot{}
	}
	c.JSON(http.StatusOK, history)
}

// handleEvents streams the session's snapshots as server-sent events,
// starting with the current one.
func (s *Server) handleEvents(c *gin.Context) {
	if s.log == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "snapshot events are disabled"})
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}

	updates := make(chan wizard.Snapshot, 16)
	unsubscribe, err := s.log.Watch(sess.ID(), func(snap wizard.Snapshot) {
		select {
		case updates <- snap:
		default:
			logger.Warn("httpapi: events client for %s is slow, dropping v%d", snap.SessionID, snap.Version)
		}
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = unsubscribe() }()

	c.SSEvent("snapshot", sess.Snapshot().View())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-s.baseCtx.Done():
			return false
		case snap := <-updates:
			c.SSEvent("snapshot", snap.View())
			return true
		}
	})
}
