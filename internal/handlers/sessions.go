package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes draft/applied filter sessions over HTTP.
type SessionHandler struct {
	manager *session.Manager
}

func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type createSessionRequest struct {
	Kind    models.ListingKind `json:"kind"`
	Filtros map[string]string  `json:"filtros"`
}

type sortRequest struct {
	Orden string `json:"orden"`
}

func toValues(params map[string]string) url.Values {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values
}

// controller loads the session named in the path or answers 404.
func (h *SessionHandler) controller(c *gin.Context) (*session.Controller, bool) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sesión no encontrada"})
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) respond(c *gin.Context, status int, id string, ctrl *session.Controller) {
	c.JSON(status, gin.H{
		"id":      id,
		"session": ctrl.Snapshot(),
		"data":    ctrl.Results(),
	})
}

// Create opens a session. The optional filtros map seeds the draft.
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida"})
			return
		}
	}
	if req.Kind == "" {
		req.Kind = models.KindProperty
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de publicación desconocido"})
		return
	}

	id, ctrl, err := h.manager.Create(req.Kind)
	if errors.Is(err, session.ErrTooMany) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Demasiadas sesiones abiertas"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(req.Filtros) > 0 {
		values := toValues(req.Filtros)
		ctrl.Edit(func(cur filter.Criteria) filter.Criteria { return cur.WithParams(values) })
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "session": ctrl.Snapshot()})
}

// EditDraft applies parameter edits to the draft without searching. An empty
// value clears that parameter.
func (h *SessionHandler) EditDraft(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var params map[string]string
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida"})
		return
	}

	values := toValues(params)
	draft := ctrl.Edit(func(cur filter.Criteria) filter.Criteria { return cur.WithParams(values) })
	c.JSON(http.StatusOK, gin.H{"borrador": draft})
}

// Submit applies the draft and searches. superseded is true when a newer
// search replaced this one before it finished.
func (h *SessionHandler) Submit(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	kept := ctrl.Submit(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"id":         c.Param("id"),
		"session":    ctrl.Snapshot(),
		"data":       ctrl.Results(),
		"superseded": !kept,
	})
}

// SetSort changes the display order of the current results.
func (h *SessionHandler) SetSort(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida"})
		return
	}

	ctrl.SetSort(filter.ParseSortMode(req.Orden))
	h.respond(c, http.StatusOK, c.Param("id"), ctrl)
}

// Clear resets every filter and searches again.
func (h *SessionHandler) Clear(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	ctrl.Clear(c.Request.Context())
	h.respond(c, http.StatusOK, c.Param("id"), ctrl)
}

// Get returns the session state with the current results.
func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, c.Param("id"), ctrl)
}

// Delete closes the session.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.manager.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sesión no encontrada"})
		return
	}
	c.Status(http.StatusNoContent)
}
