package dto

import (
	"errors"

	"offertrack/internal/application/tracking"
	"offertrack/internal/domain/click"
)

// DeviceInfo carries optional client-supplied request context.
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// TrackClickRequest is the body of POST /track/click.
type TrackClickRequest struct {
	OfferID     string      `json:"offer_id"`
	UserID      string      `json:"user_id"`
	AffiliateID string      `json:"affiliate_id,omitempty"`
	SubID1      string      `json:"sub_id1,omitempty"`
	SubID2      string      `json:"sub_id2,omitempty"`
	SubID3      string      `json:"sub_id3,omitempty"`
	SubID4      string      `json:"sub_id4,omitempty"`
	SubID5      string      `json:"sub_id5,omitempty"`
	DeviceInfo  *DeviceInfo `json:"device_info,omitempty"`

	// TimeToActionMs is the tracker-reported elapsed time between the ad
	// render and the click, in milliseconds. Zero means not measured.
	TimeToActionMs int64 `json:"time_to_action_ms,omitempty"`
}

// ToInput validates the request and converts it to a use case input. The
// remote IP and user agent observed on the HTTP request are used unless the
// body overrides them.
func (r *TrackClickRequest) ToInput(remoteIP, userAgent string) (*tracking.RecordClickInput, error) {
	if r.OfferID == "" {
		return nil, errors.New("offer_id is required")
	}
	if r.UserID == "" {
		return nil, errors.New("user_id is required")
	}

	in := &tracking.RecordClickInput{
		OfferID:        r.OfferID,
		UserID:         r.UserID,
		AffiliateID:    r.AffiliateID,
		SubID1:         r.SubID1,
		SubID2:         r.SubID2,
		SubID3:         r.SubID3,
		SubID4:         r.SubID4,
		SubID5:         r.SubID5,
		IPAddress:      remoteIP,
		UserAgent:      userAgent,
		TimeToActionMs: r.TimeToActionMs,
	}
	if r.DeviceInfo != nil {
		if r.DeviceInfo.IPAddress != "" {
			in.IPAddress = r.DeviceInfo.IPAddress
		}
		if r.DeviceInfo.UserAgent != "" {
			in.UserAgent = r.DeviceInfo.UserAgent
		}
	}
	return in, nil
}

// FraudSummary is the risk annotation exposed to callers.
type FraudSummary struct {
	Score     int      `json:"score"`
	RiskLevel string   `json:"risk_level"`
	Flags     []string `json:"flags,omitempty"`
}

// TrackClickResponse is the body returned by POST /track/click.
type TrackClickResponse struct {
	ClickID  string       `json:"click_id"`
	IsUnique bool         `json:"is_unique"`
	Country  string       `json:"country"`
	Fraud    FraudSummary `json:"fraud"`
}

// NewTrackClickResponse builds the response for a stored click.
func NewTrackClickResponse(c *click.Click) TrackClickResponse {
	return TrackClickResponse{
		ClickID:  c.ClickID,
		IsUnique: c.IsUnique,
		Country:  c.Country,
		Fraud: FraudSummary{
			Score:     c.FraudScore,
			RiskLevel: string(c.RiskLevel),
			Flags:     c.FraudFlags,
		},
	}
}
