package handler

import (
	"errors"
	"net/http"

	"offertrack/internal/application/dto"
	"offertrack/internal/application/tracking"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/postback"
)

// PostbackHandler handles upstream partner notifications and operator reads
// of the postback queue.
type PostbackHandler struct {
	recordConversion *tracking.RecordConversionUseCase
	partners         partner.PartnerRepository
	jobs             postback.JobRepository
}

// NewPostbackHandler creates a new postback handler
func NewPostbackHandler(
	recordConversion *tracking.RecordConversionUseCase,
	partners partner.PartnerRepository,
	jobs postback.JobRepository,
) *PostbackHandler {
	return &PostbackHandler{
		recordConversion: recordConversion,
		partners:         partners,
		jobs:             jobs,
	}
}

// Receive handles GET/POST /postback/{partner_key}. Parameters arrive as
// query string or form fields; everything is preserved verbatim on the
// conversion for audit.
func (h *PostbackHandler) Receive(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("partner_key")
	if _, err := h.partners.GetByKey(r.Context(), key); err != nil {
		if errors.Is(err, partner.ErrPartnerNotFound) {
			writeError(w, http.StatusNotFound, "unknown partner key")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "unparseable parameters: "+err.Error())
		return
	}

	payload := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			payload[k] = vs[0]
		}
	}
	payload["partner_key"] = key

	result, err := h.recordConversion.Execute(r.Context(), payload)
	if err != nil {
		if errors.Is(err, conversion.ErrMissingTransactionID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process postback: "+err.Error())
		return
	}

	// Duplicates acknowledge with the existing record: success-no-op.
	writeJSON(w, http.StatusOK, dto.NewConversionResponse(result))
}

// GetJob handles GET /api/v1/postbacks/{id}
func (h *PostbackHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, postback.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "postback job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobsByConversion handles GET /api/v1/conversions/{id}/postbacks
func (h *PostbackHandler) ListJobsByConversion(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListByConversion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"postbacks": jobs})
}
