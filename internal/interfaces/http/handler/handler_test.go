package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offertrack/internal/application/dto"
	"offertrack/internal/application/tracking"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/fraud"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/payout"
	"offertrack/internal/infrastructure/http/router"
	"offertrack/internal/infrastructure/memory"
	"offertrack/internal/interfaces/http/handler"
)

type cleanProvider struct{}

func (cleanProvider) Lookup(_ context.Context, _ string) (fraud.IPSignals, error) {
	return fraud.IPSignals{Country: "US"}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	clicks := memory.NewClickRepository()
	convs := memory.NewConversionRepository()
	jobs := memory.NewPostbackJobRepository()
	partners := memory.NewPartnerConfigRepository()
	partners.SeedOffer(&partner.Offer{
		ID:           "offer-1",
		Active:       true,
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(50),
		Currency:     "USD",
	})
	partners.SeedPartner(&partner.Partner{
		ID:     "partner-1",
		Key:    "acme",
		Active: true,
	}, "offer-1")

	clock := clockwork.NewFakeClock()
	engine := fraud.NewEngine(cleanProvider{}, memory.NewDeviceHistory(), memory.NewSessionHistory(clock), nil)
	matcher := conversion.NewMatcher(clicks, convs, partners, payout.NewCalculator(nil), nil, nil)

	recordClick := tracking.NewRecordClickUseCase(clicks, partners, engine, clock, nil, nil)
	recordConversion := tracking.NewRecordConversionUseCase(matcher, nil, nil)

	trackHandler := handler.NewTrackHandler(recordClick, recordConversion, clicks, convs)
	postbackHandler := handler.NewPostbackHandler(recordConversion, partners, jobs)
	healthHandler := handler.NewHealthHandler(nil, nil, "test")

	r := router.NewRouter(trackHandler, postbackHandler, healthHandler, prometheus.NewRegistry())
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestTrackClick_Created(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/track/click", map[string]string{
		"offer_id": "offer-1",
		"user_id":  "user-1",
		"sub_id1":  "src-a",
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body dto.TrackClickResponse
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.ClickID)
	assert.True(t, body.IsUnique)
	assert.Equal(t, "US", body.Country)

	// The stored click is readable back
	getResp, err := http.Get(server.URL + "/api/v1/clicks/" + body.ClickID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestTrackClick_FastTimeToAction_Flagged(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/track/click", map[string]interface{}{
		"offer_id":          "offer-1",
		"user_id":           "user-1",
		"time_to_action_ms": 120,
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body dto.TrackClickResponse
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Fraud.Flags, "time_to_action")
}

func TestTrackClick_MissingOfferID_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/track/click", map[string]string{"user_id": "user-1"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrackClick_UnknownOffer_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/track/click", map[string]string{
		"offer_id": "offer-nope",
		"user_id":  "user-1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrackConversion_CreatedThenDuplicate(t *testing.T) {
	server := newTestServer(t)

	payload := map[string]interface{}{
		"transaction_id": "txn-1",
		"offer_id":       "offer-1",
		"payout":         "10.00",
		"status":         "approved",
	}

	first := postJSON(t, server.URL+"/track/conversion", payload)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	var created dto.ConversionResponse
	decodeJSON(t, first, &created)
	assert.False(t, created.Duplicate)

	second := postJSON(t, server.URL+"/track/conversion", payload)
	require.Equal(t, http.StatusOK, second.StatusCode)
	var replayed dto.ConversionResponse
	decodeJSON(t, second, &replayed)
	assert.True(t, replayed.Duplicate)
	assert.Equal(t, created.ConversionID, replayed.ConversionID)
}

func TestPostbackReceive_QueryParams_OK(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/postback/acme?transaction_id=txn-9&offer_id=offer-1&payout=4.00&status=approved")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.ConversionResponse
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.ConversionID)
	assert.True(t, body.Unmatched)
	assert.Equal(t, string(conversion.MatchNone), body.MatchType)
}

func TestPostbackReceive_UnknownPartnerKey_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/postback/nobody?transaction_id=txn-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetConversion_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/conversions/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth_OK(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
