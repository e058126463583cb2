package dispatch_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/infrastructure/dispatch"
)

func TestRenderURL_SubstitutesKnownMacros(t *testing.T) {
	values := map[string]string{
		dispatch.MacroClickID: "clk-123",
		dispatch.MacroPayout:  "5.00",
		dispatch.MacroStatus:  "approved",
	}

	rendered, unknown, err := dispatch.RenderURL(
		"https://partner.example/cb?cid={click_id}&amount={payout}&status={status}",
		values,
	)

	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, "https://partner.example/cb?cid=clk-123&amount=5.00&status=approved", rendered)
}

func TestRenderURL_URLEncodesValues(t *testing.T) {
	rendered, _, err := dispatch.RenderURL(
		"https://partner.example/cb?sub={sub_id1}",
		map[string]string{dispatch.MacroSubID1: "a b&c=d"},
	)

	require.NoError(t, err)
	assert.Equal(t, "https://partner.example/cb?sub=a+b%26c%3Dd", rendered)
}

func TestRenderURL_UnknownMacro_EmptyAndReported(t *testing.T) {
	rendered, unknown, err := dispatch.RenderURL(
		"https://partner.example/cb?cid={click_id}&x={bogus_macro}",
		map[string]string{dispatch.MacroClickID: "clk-123"},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"bogus_macro"}, unknown)
	assert.Equal(t, "https://partner.example/cb?cid=clk-123&x=", rendered)
}

func TestRenderURL_MissingValue_SubstitutedEmpty(t *testing.T) {
	rendered, unknown, err := dispatch.RenderURL(
		"https://partner.example/cb?cid={click_id}",
		map[string]string{},
	)

	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, "https://partner.example/cb?cid=", rendered)
}

func TestRenderURL_NoMacros_Passthrough(t *testing.T) {
	rendered, unknown, err := dispatch.RenderURL("https://partner.example/cb", nil)

	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, "https://partner.example/cb", rendered)
}

func TestMacroValues_FromConversionAndClick(t *testing.T) {
	clickID := "clk-1"
	conv := &conversion.Conversion{
		ConversionID:  "cv-1",
		TransactionID: "txn-1",
		ClickID:       &clickID,
		OfferID:       "offer-1",
		Payout:        decimal.RequireFromString("5.5"),
		Currency:      "USD",
		Status:        conversion.StatusApproved,
	}
	clk := &click.Click{
		ClickID: "clk-1",
		UserID:  "user-9",
		SubID1:  "src-a",
	}

	values := dispatch.MacroValues(conv, clk)

	assert.Equal(t, "clk-1", values[dispatch.MacroClickID])
	assert.Equal(t, "5.50", values[dispatch.MacroPayout])
	assert.Equal(t, "approved", values[dispatch.MacroStatus])
	assert.Equal(t, "txn-1", values[dispatch.MacroTransactionID])
	assert.Equal(t, "user-9", values[dispatch.MacroUserID])
	assert.Equal(t, "user-9", values[dispatch.MacroUsername])
	assert.Equal(t, "src-a", values[dispatch.MacroSubID1])
}

func TestMacroValues_NilClick_ClickMacrosEmpty(t *testing.T) {
	conv := &conversion.Conversion{
		ConversionID:  "cv-1",
		TransactionID: "txn-1",
		Payout:        decimal.Zero,
		Status:        conversion.StatusPending,
	}

	values := dispatch.MacroValues(conv, nil)

	assert.Empty(t, values[dispatch.MacroClickID])
	assert.Empty(t, values[dispatch.MacroUserID])
	assert.Equal(t, "0.00", values[dispatch.MacroPayout])
}
