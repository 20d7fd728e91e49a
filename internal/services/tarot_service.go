package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/upstream"
	apperrors "github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/logger"
)

// Per-operation cache lifetimes, reflecting how volatile each answer is. The
// deck itself is effectively static within a day; list queries churn a little
// more; a draw must never be stable.
const (
	tarotDailyTTL = 24 * time.Hour
	tarotCardTTL  = 24 * time.Hour
	tarotListTTL  = 6 * time.Hour
)

// Pagination bounds shared by the list-shaped operations.
const (
	maxListLimit     = 200
	defaultListLimit = 100
	maxListOffset    = 10000
)

// TarotCard is read-mostly reference data describing one card in the deck.
type TarotCard struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Suit            *string `json:"suit"`
	Arcana          string  `json:"arcana"`
	UprightMeaning  *string `json:"upright_meaning"`
	ReversedMeaning *string `json:"reversed_meaning"`
	ImageURL        *string `json:"image_url"`
}

// CardOfDay pairs the daily card with the date it was drawn for.
type CardOfDay struct {
	Card TarotCard `json:"card"`
	Date string    `json:"date"`
}

// DrawResult is a yes/no/maybe draw. Ephemeral; never cached.
type DrawResult struct {
	Answer string     `json:"answer"`
	Reason string     `json:"reason,omitempty"`
	Card   *TarotCard `json:"card,omitempty"`
}

// CardList is a paginated slice of the deck.
type CardList struct {
	Cards  []TarotCard `json:"cards"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// CardOfDayOptions selects which daily card to fetch. Both fields are
// optional; empty means today's canonical draw.
type CardOfDayOptions struct {
	Seed string
	Date string
}

// ListCardsOptions filters and paginates the deck listing.
type ListCardsOptions struct {
	Arcana string
	Suit   string
	Query  string
	Limit  int
	Offset int
}

// TarotService fetches card data through the tarot upstream. Only the
// decision to cache, and for how long, lives here; the wire exchange and its
// timeout/retry policy belong to the shared client.
type TarotService struct {
	client *upstream.Client
	memory *cache.Memory
	log    *zap.Logger
}

// NewTarotService wires the tarot client with an injected memory cache.
func NewTarotService(client *upstream.Client, memory *cache.Memory) (*TarotService, error) {
	if client == nil {
		return nil, errors.New("tarot service: upstream client is required")
	}
	if memory == nil {
		return nil, errors.New("tarot service: memory cache is required")
	}
	return &TarotService{
		client: client,
		memory: memory,
		log:    logger.WithModule("tarot"),
	}, nil
}

// GetCardOfDay returns the deterministic daily card. The cache key is derived
// from the exact seed/date combination, so the same key yields the same card
// for the full TTL window — that stability is the product semantic, not a
// caching accident.
func (s *TarotService) GetCardOfDay(ctx context.Context, opts CardOfDayOptions) (*CardOfDay, error) {
	if s == nil {
		return nil, errors.New("tarot service: service not initialised")
	}

	key := "tarot:daily:today"
	query := url.Values{}
	if opts.Seed != "" {
		query.Set("seed", opts.Seed)
	}
	if opts.Date != "" {
		query.Set("date", opts.Date)
	}
	if len(query) > 0 {
		key = "tarot:daily:" + query.Encode()
	}

	return cache.Wrap(ctx, s.memory, key, tarotDailyTTL, func(ctx context.Context) (*CardOfDay, error) {
		result, err := s.client.Do(ctx, upstream.Request{Path: "/cards/daily", Query: query})
		if err != nil {
			return nil, err
		}

		card, ok := parseCard(result.JSON)
		if !ok {
			return nil, apperrors.ErrUpstreamUnreachable.WithInternal(fmt.Errorf("daily card payload had no card"))
		}

		date, ok := upstream.FirstString(result.JSON, "date", "for_date", "card_date")
		if !ok {
			date = opts.Date
		}
		if date == "" {
			date = time.Now().UTC().Format(dateLayout)
		}

		return &CardOfDay{Card: *card, Date: date}, nil
	})
}

// DrawYesNo performs a yes/no/maybe draw. Draws are never cached: two
// identical questions asked seconds apart must be free to disagree. A
// question is POSTed; without one a GET is issued, and the client's quirk
// table covers upstreams that only accept POST there.
func (s *TarotService) DrawYesNo(ctx context.Context, question string) (*DrawResult, error) {
	if s == nil {
		return nil, errors.New("tarot service: service not initialised")
	}

	req := upstream.Request{Path: "/yesno"}
	if question = strings.TrimSpace(question); question != "" {
		req.Method = http.MethodPost
		req.Body = map[string]string{"question": question}
	}

	result, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	draw := &DrawResult{}
	if answer, ok := upstream.FirstString(result.JSON, "answer", "result", "value"); ok {
		draw.Answer = normalizeAnswer(answer)
	}
	draw.Reason, _ = upstream.FirstString(result.JSON, "reason", "meaning", "explanation")
	if card, ok := parseCard(result.JSON); ok {
		draw.Card = card
	}

	if draw.Answer == "" {
		return nil, apperrors.ErrUpstreamUnreachable.WithInternal(fmt.Errorf("draw payload had no answer"))
	}

	return draw, nil
}

// ListCards returns a filtered page of the deck. The fully composed query
// string is the cache key.
func (s *TarotService) ListCards(ctx context.Context, opts ListCardsOptions) (*CardList, error) {
	if s == nil {
		return nil, errors.New("tarot service: service not initialised")
	}

	limit := clamp(opts.Limit, 1, maxListLimit, defaultListLimit)
	offset := clamp(opts.Offset, 0, maxListOffset, 0)

	query := url.Values{}
	if opts.Arcana != "" {
		query.Set("arcana", opts.Arcana)
	}
	if opts.Suit != "" {
		query.Set("suit", opts.Suit)
	}
	if opts.Query != "" {
		query.Set("q", opts.Query)
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	key := "tarot:cards?" + query.Encode()

	return cache.Wrap(ctx, s.memory, key, tarotListTTL, func(ctx context.Context) (*CardList, error) {
		result, err := s.client.Do(ctx, upstream.Request{Path: "/cards", Query: query})
		if err != nil {
			return nil, err
		}

		list := &CardList{Cards: []TarotCard{}, Limit: limit, Offset: offset}
		for _, item := range collectCardPayloads(result.JSON) {
			if card, ok := parseCard(item); ok {
				list.Cards = append(list.Cards, *card)
			}
		}

		if total, ok := upstream.FirstNumber(result.JSON, "total", "count", "total_count"); ok {
			list.Total = int64(total)
		} else {
			list.Total = int64(len(list.Cards))
		}

		return list, nil
	})
}

// GetCardByID fetches one card. A non-positive id fails fast before any cache
// or network activity.
func (s *TarotService) GetCardByID(ctx context.Context, id int) (*TarotCard, error) {
	if s == nil {
		return nil, errors.New("tarot service: service not initialised")
	}
	if id <= 0 {
		return nil, apperrors.NewBadRequest("card id must be a positive integer")
	}

	key := fmt.Sprintf("tarot:card:%d", id)

	return cache.Wrap(ctx, s.memory, key, tarotCardTTL, func(ctx context.Context) (*TarotCard, error) {
		result, err := s.client.Do(ctx, upstream.Request{Path: fmt.Sprintf("/cards/%d", id)})
		if err != nil {
			return nil, err
		}

		card, ok := parseCard(result.JSON)
		if !ok {
			return nil, apperrors.ErrUpstreamUnreachable.WithInternal(fmt.Errorf("card payload had no card"))
		}
		return card, nil
	})
}

func clamp(value, min, max, fallback int) int {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func normalizeAnswer(answer string) string {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return "Yes"
	case "no", "n":
		return "No"
	case "maybe", "perhaps":
		return "Maybe"
	default:
		return strings.TrimSpace(answer)
	}
}

// parseCard probes a payload for a card object, either nested or at the top
// level, and extracts its fields through the usual candidate lists.
func parseCard(payload map[string]any) (*TarotCard, bool) {
	if payload == nil {
		return nil, false
	}

	object := payload
	if nested, ok := upstream.FirstObject(payload, "card", "data.card", "data"); ok {
		if _, hasName := upstream.FirstString(nested, "name", "card_name", "title"); hasName {
			object = nested
		}
	}

	name, ok := upstream.FirstString(object, "name", "card_name", "title")
	if !ok {
		return nil, false
	}

	card := &TarotCard{Name: name}
	if id, idOK := upstream.FirstNumber(object, "id", "card_id"); idOK {
		card.ID = int(id)
	}
	if suit, suitOK := upstream.FirstString(object, "suit"); suitOK {
		card.Suit = &suit
	}
	card.Arcana, _ = upstream.FirstString(object, "arcana", "type")
	if up, upOK := upstream.FirstString(object, "upright_meaning", "meaning_up", "meanings.upright"); upOK {
		card.UprightMeaning = &up
	}
	if rev, revOK := upstream.FirstString(object, "reversed_meaning", "meaning_rev", "meanings.reversed"); revOK {
		card.ReversedMeaning = &rev
	}
	if img, imgOK := upstream.FirstString(object, "image_url", "image", "img"); imgOK {
		card.ImageURL = &img
	}

	return card, true
}

func collectCardPayloads(payload map[string]any) []map[string]any {
	if payload == nil {
		return nil
	}

	for _, key := range []string{"cards", "data", "results"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		collected := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if object, ok := item.(map[string]any); ok {
				collected = append(collected, object)
			}
		}
		return collected
	}
	return nil
}
