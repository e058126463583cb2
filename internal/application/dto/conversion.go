package dto

import (
	"offertrack/internal/domain/conversion"
)

// ConversionResponse acknowledges a recorded or replayed conversion.
type ConversionResponse struct {
	ConversionID string `json:"conversion_id"`
	ClickID      string `json:"click_id,omitempty"`
	Status       string `json:"status"`
	MatchType    string `json:"match_type"`
	// Duplicate is true when the transaction_id was already recorded and the
	// existing conversion is returned unchanged.
	Duplicate bool `json:"duplicate"`
	// Unmatched flags a conversion stored without a click reference.
	Unmatched    bool `json:"unmatched,omitempty"`
	JobsEnqueued int  `json:"postbacks_enqueued"`
}

// NewConversionResponse builds the acknowledgement for a match result.
func NewConversionResponse(result *conversion.MatchResult) ConversionResponse {
	resp := ConversionResponse{
		ConversionID: result.Conversion.ConversionID,
		Status:       string(result.Conversion.Status),
		MatchType:    string(result.Conversion.MatchType),
		Duplicate:    !result.Created,
		Unmatched:    result.Conversion.Unmatched(),
		JobsEnqueued: result.JobsEnqueued,
	}
	if result.Conversion.ClickID != nil {
		resp.ClickID = *result.Conversion.ClickID
	}
	return resp
}
