package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/astraljournal/lunarlog/internal/models"
	"github.com/astraljournal/lunarlog/internal/upstream"
	apperrors "github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/logger"
	"github.com/astraljournal/lunarlog/pkg/metrics"
)

// moonFreshnessWindow is the maximum age of a durable moon row before it is
// recomputed from the upstream.
const moonFreshnessWindow = 24 * time.Hour

// LocationSpec carries exactly one location form. The boundary layer is
// responsible for rejecting requests that supply more than one; this service
// only insists that at least one usable form is present.
type LocationSpec struct {
	Lat      *float64
	Lon      *float64
	Place    string
	ClientIP string
}

// Location describes the resolved coordinates and human-readable labels for a
// moon lookup.
type Location struct {
	Lat             float64  `json:"lat"`
	Lon             float64  `json:"lon"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Country         string   `json:"country,omitempty"`
	Locality        string   `json:"locality,omitempty"`
	ElevationMeters *float64 `json:"elevation_meters,omitempty"`
}

// MoonSnapshot is the canonical astronomical result returned to callers.
type MoonSnapshot struct {
	Date       string     `json:"date"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Phase      *string    `json:"phase"`
	Moonrise   *time.Time `json:"moonrise"`
	Moonset    *time.Time `json:"moonset"`
	ZodiacSign *string    `json:"zodiac_sign"`
	Location   Location   `json:"location"`
}

// MoonService resolves a location input to astronomical facts through the
// astronomy upstream, fronted by the durable coordinate-keyed cache.
type MoonService struct {
	client *upstream.Client
	store  *MoonStore
	window time.Duration
	log    *zap.Logger
}

// NewMoonService wires the astronomy client and durable store together.
func NewMoonService(client *upstream.Client, store *MoonStore) (*MoonService, error) {
	if client == nil {
		return nil, errors.New("moon service: upstream client is required")
	}
	if store == nil {
		return nil, errors.New("moon service: store is required")
	}
	return &MoonService{
		client: client,
		store:  store,
		window: moonFreshnessWindow,
		log:    logger.WithModule("moon"),
	}, nil
}

// GetMoonFor returns the moon snapshot for a date and location.
//
// The single upstream call is authoritative for resolving a place name or
// client IP into coordinates and labels, so it happens before the cache probe.
// A fresh durable row short-circuits only the persisted phase/rise/set fields;
// labels and zodiac sign always come from the just-completed upstream call.
// That refresh-on-hit trade-off is deliberate — see the decision record — and
// a hit leaves the stored row untouched.
func (s *MoonService) GetMoonFor(ctx context.Context, date string, loc LocationSpec) (*MoonSnapshot, error) {
	if s == nil {
		return nil, errors.New("moon service: service not initialised")
	}

	canonical, err := CanonicalDate(date)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid date").WithInternal(err)
	}

	query, err := locationQuery(loc)
	if err != nil {
		return nil, err
	}
	query.Set("date", canonical)

	result, err := s.client.Do(ctx, upstream.Request{Path: "/astronomy", Query: query})
	if err != nil {
		return nil, err
	}

	facts := parseAstronomy(result.JSON, loc)
	keyLat := RoundCoordinate(facts.Location.Lat)
	keyLon := RoundCoordinate(facts.Location.Lon)

	row, err := s.store.FindFresh(ctx, canonical, keyLat, keyLon, s.window)
	if err != nil {
		return nil, err
	}

	if row != nil {
		metrics.CacheLookups.WithLabelValues("moon_db", "hit").Inc()
		s.log.Debug("durable cache hit",
			zap.String("date", canonical),
			zap.Float64("lat", keyLat),
			zap.Float64("lon", keyLon),
		)
		return &MoonSnapshot{
			Date:       canonical,
			Lat:        keyLat,
			Lon:        keyLon,
			Phase:      row.Phase,
			Moonrise:   row.Moonrise,
			Moonset:    row.Moonset,
			ZodiacSign: facts.ZodiacSign,
			Location:   facts.Location,
		}, nil
	}

	metrics.CacheLookups.WithLabelValues("moon_db", "miss").Inc()

	moonrise := CombineDateTime(canonical, facts.MoonriseClock)
	moonset := CombineDateTime(canonical, facts.MoonsetClock)

	if err := s.store.Upsert(ctx, &models.MoonCache{
		Date:     canonical,
		Lat:      keyLat,
		Lon:      keyLon,
		Phase:    facts.Phase,
		Moonrise: moonrise,
		Moonset:  moonset,
	}); err != nil {
		return nil, err
	}

	return &MoonSnapshot{
		Date:       canonical,
		Lat:        keyLat,
		Lon:        keyLon,
		Phase:      facts.Phase,
		Moonrise:   moonrise,
		Moonset:    moonset,
		ZodiacSign: facts.ZodiacSign,
		Location:   facts.Location,
	}, nil
}

func locationQuery(loc LocationSpec) (url.Values, error) {
	query := url.Values{}
	switch {
	case loc.Lat != nil && loc.Lon != nil:
		query.Set("lat", strconv.FormatFloat(*loc.Lat, 'f', -1, 64))
		query.Set("lon", strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
	case loc.Place != "":
		query.Set("place", loc.Place)
	case loc.ClientIP != "":
		query.Set("ip", loc.ClientIP)
	default:
		return nil, apperrors.NewBadRequest("a location is required: coordinates, a place name, or a client address")
	}
	return query, nil
}

// moonFacts is the normalised view of one astronomy upstream response.
type moonFacts struct {
	Phase         *string
	MoonriseClock string
	MoonsetClock  string
	ZodiacSign    *string
	Location      Location
}

// parseAstronomy probes the upstream payload for each concept through an
// ordered candidate list; the upstream's field names are not contractually
// guaranteed. Coordinates fall back to the caller's own when the upstream
// echoes none.
func parseAstronomy(payload map[string]any, loc LocationSpec) moonFacts {
	facts := moonFacts{}
	if payload == nil {
		payload = map[string]any{}
	}

	if phase, ok := upstream.FirstString(payload, "moon_phase", "phase", "moonPhase", "moon.phase"); ok {
		facts.Phase = &phase
	}
	if rise, ok := upstream.FirstString(payload, "moonrise", "moon_rise", "moon.moonrise", "moon.rise"); ok {
		facts.MoonriseClock = rise
	}
	if set, ok := upstream.FirstString(payload, "moonset", "moon_set", "moon.moonset", "moon.set"); ok {
		facts.MoonsetClock = set
	}
	if sign, ok := upstream.FirstString(payload, "zodiac_sign", "zodiac", "moon_sign", "sign"); ok {
		facts.ZodiacSign = &sign
	}

	if lat, ok := upstream.FirstNumber(payload, "location.lat", "location.latitude", "lat", "latitude"); ok {
		facts.Location.Lat = lat
	} else if loc.Lat != nil {
		facts.Location.Lat = *loc.Lat
	}
	if lon, ok := upstream.FirstNumber(payload, "location.lon", "location.longitude", "lon", "longitude"); ok {
		facts.Location.Lon = lon
	} else if loc.Lon != nil {
		facts.Location.Lon = *loc.Lon
	}

	facts.Location.City, _ = upstream.FirstString(payload, "location.city", "city")
	facts.Location.State, _ = upstream.FirstString(payload, "location.state", "state", "location.region")
	facts.Location.Country, _ = upstream.FirstString(payload, "location.country", "country")
	facts.Location.Locality, _ = upstream.FirstString(payload, "location.locality", "locality")
	if elevation, ok := upstream.FirstNumber(payload, "location.elevation", "elevation", "location.elevation_meters"); ok {
		facts.Location.ElevationMeters = &elevation
	}

	return facts
}
