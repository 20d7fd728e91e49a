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

// MoonHandler serves astronomical data lookups.
type MoonHandler struct {
	moon *services.MoonService
}

func NewMoonHandler(moon *services.MoonService) *MoonHandler {
	return &MoonHandler{moon: moon}
}

// GET /api/moon?date=&lat=&lon=&place=
//
// Exactly one location form may be supplied: a lat/lon pair or a place name.
// With neither, the client's own address is used for a best-effort lookup.
func (h *MoonHandler) GetMoon(c *gin.Context) {
	spec, err := parseLocationSpec(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.moon.GetMoonFor(c.Request.Context(), c.Query("date"), spec)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

func parseLocationSpec(c *gin.Context) (services.LocationSpec, error) {
	latRaw := strings.TrimSpace(c.Query("lat"))
	lonRaw := strings.TrimSpace(c.Query("lon"))
	place := strings.TrimSpace(c.Query("place"))

	hasCoords := latRaw != "" || lonRaw != ""
	if hasCoords && place != "" {
		return services.LocationSpec{}, errors.NewBadRequest("supply either coordinates or a place name, not both")
	}

	if hasCoords {
		if latRaw == "" || lonRaw == "" {
			return services.LocationSpec{}, errors.NewBadRequest("lat and lon must be supplied together")
		}

		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil || lat < -90 || lat > 90 {
			return services.LocationSpec{}, errors.NewBadRequest("lat must be a number between -90 and 90")
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil || lon < -180 || lon > 180 {
			return services.LocationSpec{}, errors.NewBadRequest("lon must be a number between -180 and 180")
		}

		return services.LocationSpec{Lat: &lat, Lon: &lon}, nil
	}

	if place != "" {
		return services.LocationSpec{Place: place}, nil
	}

	return services.LocationSpec{ClientIP: c.ClientIP()}, nil
}
