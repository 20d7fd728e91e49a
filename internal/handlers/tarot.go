package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/response"
)

// TarotHandler serves card data lookups and draws.
type TarotHandler struct {
	tarot *services.TarotService
}

func NewTarotHandler(tarot *services.TarotService) *TarotHandler {
	return &TarotHandler{tarot: tarot}
}

// GET /api/tarot/daily?seed=&date=
func (h *TarotHandler) CardOfDay(c *gin.Context) {
	card, err := h.tarot.GetCardOfDay(c.Request.Context(), services.CardOfDayOptions{
		Seed: strings.TrimSpace(c.Query("seed")),
		Date: strings.TrimSpace(c.Query("date")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, card)
}

type drawRequest struct {
	Question string `json:"question"`
}

// POST /api/tarot/draw
func (h *TarotHandler) Draw(c *gin.Context) {
	var req drawRequest
	if c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	result, err := h.tarot.DrawYesNo(c.Request.Context(), req.Question)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GET /api/tarot/cards?arcana=&suit=&q=&limit=&offset=
func (h *TarotHandler) ListCards(c *gin.Context) {
	list, err := h.tarot.ListCards(c.Request.Context(), services.ListCardsOptions{
		Arcana: strings.TrimSpace(c.Query("arcana")),
		Suit:   strings.TrimSpace(c.Query("suit")),
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, list.Cards, &response.Meta{
		Total:  list.Total,
		Limit:  list.Limit,
		Offset: list.Offset,
	})
}

// GET /api/tarot/cards/:id
func (h *TarotHandler) GetCard(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, errors.NewBadRequest("card id must be a positive integer"))
		return
	}

	card, getErr := h.tarot.GetCardByID(c.Request.Context(), id)
	if getErr != nil {
		response.Error(c, getErr)
		return
	}

	response.Success(c, http.StatusOK, card)
}
