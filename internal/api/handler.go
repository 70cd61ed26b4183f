package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	service service.ServiceInterface
	logger  *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(service service.ServiceInterface, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Nearby handles GET /api/v1/nearby
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	latStr, lonStr, radiusStr := query.Get("lat"), query.Get("lon"), query.Get("radius")

	if latStr == "" || lonStr == "" || radiusStr == "" {
		http.Error(w, "parameters 'lat', 'lon' and 'radius' are required", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		http.Error(w, "invalid lat parameter", http.StatusBadRequest)
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		http.Error(w, "invalid lon parameter", http.StatusBadRequest)
		return
	}

	radius, err := strconv.ParseFloat(radiusStr, 64)
	if err != nil {
		http.Error(w, "invalid radius parameter", http.StatusBadRequest)
		return
	}

	req := model.NearbyRequest{
		Lat:          lat,
		Lon:          lon,
		RadiusMiles:  radius,
		FeatureCodes: featureCodes(query["fcode"]),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		req.Limit, err = strconv.Atoi(limitStr)
		if err != nil || req.Limit <= 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
	}

	if sortStr := query.Get("sort"); sortStr != "" {
		req.SortByDistance, err = strconv.ParseBool(sortStr)
		if err != nil {
			http.Error(w, "invalid sort parameter", http.StatusBadRequest)
			return
		}
	}

	response, err := h.service.Nearby(r.Context(), req)
	if err != nil {
		h.fail(w, "Error searching nearby localities", err)
		return
	}
	h.respond(w, response)
}

// FindLocalities handles GET /api/v1/countries/{code}/localities
func (h *Handler) FindLocalities(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "query parameter 'name' is required", http.StatusBadRequest)
		return
	}

	response, err := h.service.FindLocalities(r.Context(), mux.Vars(r)["code"], name)
	if err != nil {
		h.fail(w, "Error finding localities", err)
		return
	}
	h.respond(w, response)
}

// ListAdmin1 handles GET /api/v1/countries/{code}/admin1
func (h *Handler) ListAdmin1(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.ListAdmin1(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		h.fail(w, "Error listing admin1 codes", err)
		return
	}
	if response == nil {
		http.Error(w, "country not found", http.StatusNotFound)
		return
	}
	h.respond(w, response)
}

// ListAdmin2 handles GET /api/v1/admin1/{id}/admin2
func (h *Handler) ListAdmin2(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid admin1 id", http.StatusBadRequest)
		return
	}

	response, err := h.service.ListAdmin2(r.Context(), id)
	if err != nil {
		h.fail(w, "Error listing admin2 codes", err)
		return
	}
	if response == nil {
		http.Error(w, "admin1 not found", http.StatusNotFound)
		return
	}
	h.respond(w, response)
}

// FindPostcodes handles GET /api/v1/postcodes/{code}
func (h *Handler) FindPostcodes(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		http.Error(w, "query parameter 'country' is required", http.StatusBadRequest)
		return
	}

	response, err := h.service.FindPostcodes(r.Context(), country, mux.Vars(r)["code"])
	if err != nil {
		h.fail(w, "Error finding postcodes", err)
		return
	}
	h.respond(w, response)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, service.ErrInvalidRequest) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error(msg, zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *Handler) respond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// featureCodes accepts repeated and comma separated fcode values.
func featureCodes(values []string) []string {
	var codes []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
				codes = append(codes, c)
			}
		}
	}
	return codes
}
