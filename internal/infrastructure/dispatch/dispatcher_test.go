package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/postback"
	"offertrack/internal/infrastructure/dispatch"
	"offertrack/internal/infrastructure/memory"
)

func testConfig() dispatch.Config {
	cfg := dispatch.DefaultConfig()
	cfg.BackoffBase = time.Minute
	cfg.BackoffMax = 10 * time.Minute
	return cfg
}

func seedPartner(repo *memory.PartnerConfigRepository, postbackURL, method string, maxAttempts int) {
	repo.SeedOffer(&partner.Offer{
		ID:         "offer-1",
		Active:     true,
		PayoutType: partner.PayoutRevShare,
	})
	repo.SeedPartner(&partner.Partner{
		ID:          "partner-1",
		Key:         "p1",
		Active:      true,
		PostbackURL: postbackURL,
		Method:      method,
		MaxAttempts: maxAttempts,
	}, "offer-1")
}

func testConversion() *conversion.Conversion {
	clickID := "clk-1"
	return &conversion.Conversion{
		ConversionID:  "cv-1",
		TransactionID: "txn-1",
		ClickID:       &clickID,
		OfferID:       "offer-1",
		Payout:        decimal.RequireFromString("5.00"),
		Currency:      "USD",
		Status:        conversion.StatusApproved,
	}
}

func TestEnqueueForConversion_CreatesJobWithRenderedURL(t *testing.T) {
	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	seedPartner(partners, "https://partner.example/cb?cid={click_id}&payout={payout}", "GET", 3)

	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clockwork.NewFakeClock(), nil, nil)

	created, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, created)

	queued, err := jobs.ListByConversion(context.Background(), "cv-1")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "https://partner.example/cb?cid=clk-1&payout=5.00", queued[0].URL)
	assert.Equal(t, postback.StatusPending, queued[0].Status)
	assert.Equal(t, 3, queued[0].MaxAttempts)
}

func TestEnqueueForConversion_InactivePartner_Skipped(t *testing.T) {
	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	partners.SeedOffer(&partner.Offer{ID: "offer-1", Active: true})
	partners.SeedPartner(&partner.Partner{
		ID: "partner-off", Key: "off", Active: false,
		PostbackURL: "https://partner.example/cb",
	}, "offer-1")

	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clockwork.NewFakeClock(), nil, nil)

	created, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})

	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestSweep_SuccessfulDelivery_TerminatesJob(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	seedPartner(partners, server.URL+"/cb?cid={click_id}", "GET", 3)

	clock := clockwork.NewFakeClock()
	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clock, nil, nil)

	_, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})
	require.NoError(t, err)

	require.NoError(t, d.Sweep(context.Background()))

	queued, _ := jobs.ListByConversion(context.Background(), "cv-1")
	require.Len(t, queued, 1)
	assert.Equal(t, postback.StatusSuccess, queued[0].Status)
	assert.Equal(t, 1, queued[0].Attempts)
	assert.Equal(t, http.StatusOK, queued[0].ResponseCode)
	assert.Equal(t, "/cb?cid=clk-1", gotPath)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempt)
	assert.Equal(t, http.StatusOK, entries[0].ResponseCode)
}

func TestSweep_ServerErrors_RetriesThenFailsPermanently(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	seedPartner(partners, server.URL+"/cb", "GET", 3)

	clock := clockwork.NewFakeClock()
	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clock, nil, nil)

	_, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Sweep(context.Background()))
		clock.Advance(15 * time.Minute)
	}

	queued, _ := jobs.ListByConversion(context.Background(), "cv-1")
	require.Len(t, queued, 1)
	assert.Equal(t, postback.StatusFailed, queued[0].Status)
	assert.Equal(t, 3, queued[0].Attempts)
	assert.Equal(t, 3, hits)
	assert.Len(t, logs.Entries(), 3)

	// A further sweep never touches the terminally failed job
	require.NoError(t, d.Sweep(context.Background()))
	assert.Equal(t, 3, hits)
}

func TestSweep_FailedJob_NotDueUntilBackoffElapses(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	seedPartner(partners, server.URL+"/cb", "GET", 5)

	clock := clockwork.NewFakeClock()
	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clock, nil, nil)

	_, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})
	require.NoError(t, err)

	require.NoError(t, d.Sweep(context.Background()))
	assert.Equal(t, 1, hits)

	// Backoff for attempt 1 is one minute; before it elapses the job stays idle
	clock.Advance(30 * time.Second)
	require.NoError(t, d.Sweep(context.Background()))
	assert.Equal(t, 1, hits)

	clock.Advance(time.Minute)
	require.NoError(t, d.Sweep(context.Background()))
	assert.Equal(t, 2, hits)
}

func TestSweep_PostDelivery_QueryBecomesFormBody(t *testing.T) {
	var gotMethod, gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Encode()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	jobs := memory.NewPostbackJobRepository()
	logs := memory.NewPostbackLogRepository()
	partners := memory.NewPartnerConfigRepository()
	seedPartner(partners, server.URL+"/cb?cid={click_id}&status={status}", "POST", 3)

	clock := clockwork.NewFakeClock()
	d := dispatch.NewDispatcher(jobs, logs, partners, testConfig(), clock, nil, nil)

	_, err := d.EnqueueForConversion(context.Background(), testConversion(), nil, &partner.Offer{ID: "offer-1"})
	require.NoError(t, err)
	require.NoError(t, d.Sweep(context.Background()))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "cid=clk-1&status=approved", gotBody)
}

func TestClaim_SecondClaimRejected(t *testing.T) {
	jobs := memory.NewPostbackJobRepository()
	job := postback.NewJob("cv-1", "partner-1", "https://partner.example/cb", "GET", 3, time.Now())
	require.NoError(t, jobs.Create(context.Background(), job))

	require.NoError(t, jobs.Claim(context.Background(), job.PostbackID))
	err := jobs.Claim(context.Background(), job.PostbackID)

	assert.ErrorIs(t, err, postback.ErrAlreadyClaimed)
}
