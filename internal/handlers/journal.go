package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/middleware"
	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/response"
)

// JournalHandler serves journal entry CRUD for the authenticated user.
type JournalHandler struct {
	journal *services.JournalService
}

func NewJournalHandler(journal *services.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// POST /api/journal/entries
func (h *JournalHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req services.CreateEntryInput
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.journal.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, entry)
}

// GET /api/journal/entries?from=&to=&q=&limit=&offset=
func (h *JournalHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	opts := services.ListEntriesOptions{
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}

	entries, total, err := h.journal.List(c.Request.Context(), userID, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GET /api/journal/entries/:id
func (h *JournalHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	entry, err := h.journal.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entry)
}

// PATCH /api/journal/entries/:id
func (h *JournalHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req services.UpdateEntryInput
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.journal.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/journal/entries/:id
func (h *JournalHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.journal.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
