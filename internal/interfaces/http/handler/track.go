package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"offertrack/internal/application/dto"
	"offertrack/internal/application/tracking"
	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
)

// TrackHandler handles inbound click and conversion tracking requests
type TrackHandler struct {
	recordClick      *tracking.RecordClickUseCase
	recordConversion *tracking.RecordConversionUseCase
	clicks           click.Repository
	conversions      conversion.Repository
}

// NewTrackHandler creates a new tracking handler
func NewTrackHandler(
	recordClick *tracking.RecordClickUseCase,
	recordConversion *tracking.RecordConversionUseCase,
	clicks click.Repository,
	conversions conversion.Repository,
) *TrackHandler {
	return &TrackHandler{
		recordClick:      recordClick,
		recordConversion: recordConversion,
		clicks:           clicks,
		conversions:      conversions,
	}
}

// TrackClick handles POST /track/click
func (h *TrackHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	input, err := req.ToInput(clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.recordClick.Execute(r.Context(), *input)
	if err != nil {
		if errors.Is(err, click.ErrInvalidOffer) {
			writeError(w, http.StatusBadRequest, "unknown or inactive offer")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record click: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewTrackClickResponse(c))
}

// TrackConversion handles POST /track/conversion: the internal completion
// callback. Arbitrary extra fields are preserved verbatim.
func (h *TrackHandler) TrackConversion(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	payload := make(map[string]string, len(body))
	for k, v := range body {
		payload[k] = stringify(v)
	}

	result, err := h.recordConversion.Execute(r.Context(), payload)
	if err != nil {
		if errors.Is(err, conversion.ErrMissingTransactionID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record conversion: "+err.Error())
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.NewConversionResponse(result))
}

// GetClick handles GET /api/v1/clicks/{id}
func (h *TrackHandler) GetClick(w http.ResponseWriter, r *http.Request) {
	c, err := h.clicks.GetByClickID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, click.ErrNotFound) {
			writeError(w, http.StatusNotFound, "click not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetConversion handles GET /api/v1/conversions/{id}
func (h *TrackHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, conversion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
