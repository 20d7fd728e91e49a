package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/astraljournal/lunarlog/internal/models"
	apperrors "github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/logger"
)

// ErrEntryNotFound indicates the requested journal entry does not exist or is
// not owned by the caller.
var ErrEntryNotFound = apperrors.New("ENTRY_NOT_FOUND", "Journal entry not found", http.StatusNotFound)

// CreateEntryInput describes a new journal entry.
type CreateEntryInput struct {
	EntryDate string   `json:"entry_date"`
	Title     string   `json:"title" validate:"required,max=256"`
	Body      string   `json:"body"`
	Mood      string   `json:"mood"`
	Tags      []string `json:"tags"`

	// Location, when present, is used to capture the moon enrichment for the
	// entry's date at write time.
	Lat *float64 `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon *float64 `json:"lon" validate:"omitempty,min=-180,max=180"`
}

// UpdateEntryInput enumerates the mutable entry attributes.
type UpdateEntryInput struct {
	Title *string  `json:"title" validate:"omitempty,max=256"`
	Body  *string  `json:"body"`
	Mood  *string  `json:"mood"`
	Tags  []string `json:"tags"`
}

// ListEntriesOptions filters and paginates a user's entries.
type ListEntriesOptions struct {
	From   string
	To     string
	Query  string
	Limit  int
	Offset int
}

// entryEnrichment is the payload frozen into an entry at write time, so the
// entry renders the same after the upstream data for that day has rotated.
type entryEnrichment struct {
	Moon      *MoonSnapshot `json:"moon,omitempty"`
	DailyCard *CardOfDay    `json:"daily_card,omitempty"`
}

// JournalService owns journal entry CRUD. The moon and tarot services are
// optional collaborators used only to enrich entries at creation; their
// failures never block a write.
type JournalService struct {
	db    *gorm.DB
	moon  *MoonService
	tarot *TarotService
	log   *zap.Logger
}

// NewJournalService constructs a JournalService. moon and tarot may be nil.
func NewJournalService(db *gorm.DB, moon *MoonService, tarot *TarotService) (*JournalService, error) {
	if db == nil {
		return nil, errors.New("journal service: db is required")
	}
	return &JournalService{
		db:    db,
		moon:  moon,
		tarot: tarot,
		log:   logger.WithModule("journal"),
	}, nil
}

// Create persists a new entry for the user, capturing the day's moon and
// daily-card data when the collaborating services can supply it.
func (s *JournalService) Create(ctx context.Context, userID string, input CreateEntryInput) (*models.JournalEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	entryDate, err := CanonicalDate(input.EntryDate)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid entry date").WithInternal(err)
	}

	entry := &models.JournalEntry{
		UserID:    userID,
		EntryDate: entryDate,
		Title:     strings.TrimSpace(input.Title),
		Body:      input.Body,
		Mood:      strings.TrimSpace(input.Mood),
	}

	if len(input.Tags) > 0 {
		encoded, err := json.Marshal(input.Tags)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid tags").WithInternal(err)
		}
		entry.Tags = datatypes.JSON(encoded)
	}

	if enrichment := s.enrich(ctx, entryDate, input.Lat, input.Lon); enrichment != nil {
		encoded, err := json.Marshal(enrichment)
		if err == nil {
			entry.Enrichment = datatypes.JSON(encoded)
		}
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("journal service: create entry: %w", err)
	}
	return entry, nil
}

// enrich gathers the moon snapshot and daily card for the entry's date. A
// short deadline keeps a slow upstream from stalling the write path.
func (s *JournalService) enrich(ctx context.Context, entryDate string, lat, lon *float64) *entryEnrichment {
	if s.moon == nil && s.tarot == nil {
		return nil
	}

	enrichCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	enrichment := &entryEnrichment{}

	if s.moon != nil && lat != nil && lon != nil {
		snapshot, err := s.moon.GetMoonFor(enrichCtx, entryDate, LocationSpec{Lat: lat, Lon: lon})
		if err != nil {
			s.log.Warn("moon enrichment skipped", zap.String("date", entryDate), zap.Error(err))
		} else {
			enrichment.Moon = snapshot
		}
	}

	if s.tarot != nil {
		card, err := s.tarot.GetCardOfDay(enrichCtx, CardOfDayOptions{Date: entryDate})
		if err != nil {
			s.log.Warn("daily card enrichment skipped", zap.String("date", entryDate), zap.Error(err))
		} else {
			enrichment.DailyCard = card
		}
	}

	if enrichment.Moon == nil && enrichment.DailyCard == nil {
		return nil
	}
	return enrichment
}

// Get loads one entry, scoped to its owner.
func (s *JournalService) Get(ctx context.Context, userID, entryID string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := s.db.WithContext(ctx).
		First(&entry, "id = ? AND user_id = ?", entryID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal service: get entry: %w", err)
	}
	return &entry, nil
}

// List returns the user's entries, newest entry date first, optionally
// narrowed to a date range or a title/body search.
func (s *JournalService) List(ctx context.Context, userID string, opts ListEntriesOptions) ([]models.JournalEntry, int64, error) {
	limit := clamp(opts.Limit, 1, maxListLimit, defaultListLimit)
	offset := clamp(opts.Offset, 0, maxListOffset, 0)

	query := s.db.WithContext(ctx).Model(&models.JournalEntry{}).Where("user_id = ?", userID)

	if opts.From != "" {
		from, err := CanonicalDate(opts.From)
		if err != nil {
			return nil, 0, apperrors.NewBadRequest("invalid from date").WithInternal(err)
		}
		query = query.Where("entry_date >= ?", from)
	}
	if opts.To != "" {
		to, err := CanonicalDate(opts.To)
		if err != nil {
			return nil, 0, apperrors.NewBadRequest("invalid to date").WithInternal(err)
		}
		query = query.Where("entry_date <= ?", to)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("journal service: count entries: %w", err)
	}

	var entries []models.JournalEntry
	if err := query.
		Order("entry_date DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("journal service: list entries: %w", err)
	}

	return entries, total, nil
}

// Update persists mutable attributes for an entry the user owns. Enrichment is
// write-once; edits never re-trigger upstream calls.
func (s *JournalService) Update(ctx context.Context, userID, entryID string, input UpdateEntryInput) (*models.JournalEntry, error) {
	entry, err := s.Get(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			updates["title"] = title
		}
	}
	if input.Body != nil {
		updates["body"] = *input.Body
	}
	if input.Mood != nil {
		updates["mood"] = strings.TrimSpace(*input.Mood)
	}
	if input.Tags != nil {
		encoded, err := json.Marshal(input.Tags)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid tags").WithInternal(err)
		}
		updates["tags"] = datatypes.JSON(encoded)
	}

	if len(updates) == 0 {
		return entry, nil
	}

	if err := s.db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("journal service: update entry: %w", err)
	}

	return s.Get(ctx, userID, entryID)
}

// Delete removes an entry the user owns.
func (s *JournalService) Delete(ctx context.Context, userID, entryID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&models.JournalEntry{})
	if result.Error != nil {
		return fmt.Errorf("journal service: delete entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
