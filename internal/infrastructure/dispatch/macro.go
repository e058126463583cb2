package dispatch

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/valyala/fasttemplate"

	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
)

// Macro names accepted in partner postback URL templates. The set is closed:
// anything else in braces is reported as unknown, not passed through.
const (
	MacroClickID       = "click_id"
	MacroPayout        = "payout"
	MacroStatus        = "status"
	MacroTransactionID = "transaction_id"
	MacroConversionID  = "conversion_id"
	MacroOfferID       = "offer_id"
	MacroUserID        = "user_id"
	MacroUsername      = "username"
	MacroCurrency      = "currency"
	MacroSubID1        = "sub_id1"
	MacroSubID2        = "sub_id2"
	MacroSubID3        = "sub_id3"
	MacroSubID4        = "sub_id4"
	MacroSubID5        = "sub_id5"
)

var knownMacros = map[string]struct{}{
	MacroClickID: {}, MacroPayout: {}, MacroStatus: {}, MacroTransactionID: {},
	MacroConversionID: {}, MacroOfferID: {}, MacroUserID: {}, MacroUsername: {},
	MacroCurrency: {}, MacroSubID1: {}, MacroSubID2: {}, MacroSubID3: {},
	MacroSubID4: {}, MacroSubID5: {},
}

// MacroValues builds the substitution context for a conversion and its click.
// A nil click leaves the click-derived macros empty.
func MacroValues(conv *conversion.Conversion, clk *click.Click) map[string]string {
	values := map[string]string{
		MacroPayout:        conv.Payout.StringFixed(2),
		MacroStatus:        string(conv.Status),
		MacroTransactionID: conv.TransactionID,
		MacroConversionID:  conv.ConversionID,
		MacroOfferID:       conv.OfferID,
		MacroCurrency:      conv.Currency,
	}
	if conv.ClickID != nil {
		values[MacroClickID] = *conv.ClickID
	}
	if clk != nil {
		values[MacroClickID] = clk.ClickID
		values[MacroUserID] = clk.UserID
		values[MacroUsername] = clk.UserID
		values[MacroSubID1] = clk.SubID1
		values[MacroSubID2] = clk.SubID2
		values[MacroSubID3] = clk.SubID3
		values[MacroSubID4] = clk.SubID4
		values[MacroSubID5] = clk.SubID5
	}
	return values
}

// RenderURL substitutes macros in a partner URL template. Known macros are
// replaced with the URL-encoded value (empty when absent from the context);
// unknown macros are substituted empty and returned by name so the caller can
// log them loudly. An error means the template itself is malformed.
func RenderURL(template string, values map[string]string) (string, []string, error) {
	t, err := fasttemplate.NewTemplate(template, "{", "}")
	if err != nil {
		return "", nil, fmt.Errorf("invalid postback template: %w", err)
	}

	var unknown []string
	rendered := t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		name := strings.TrimSpace(tag)
		if _, ok := knownMacros[name]; !ok {
			unknown = append(unknown, name)
			return 0, nil
		}
		return w.Write([]byte(url.QueryEscape(values[name])))
	})

	return rendered, unknown, nil
}
