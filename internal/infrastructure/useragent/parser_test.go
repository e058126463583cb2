package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"offertrack/internal/infrastructure/useragent"
)

const (
	chromeWin120 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeWin126 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	safariPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestParse_DesktopChrome(t *testing.T) {
	info := useragent.Parse(chromeWin120)

	assert.Equal(t, "desktop", info.DeviceType)
	assert.Equal(t, "Chrome", info.BrowserFamily)
	assert.Contains(t, info.Browser, "Chrome")
	assert.Equal(t, "Windows", info.OS)
	assert.False(t, info.IsBot)
}

func TestParse_MobileSafari(t *testing.T) {
	info := useragent.Parse(safariPhone)

	assert.Equal(t, "mobile", info.DeviceType)
	assert.Equal(t, "Safari", info.BrowserFamily)
}

func TestParse_Bot(t *testing.T) {
	info := useragent.Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")

	assert.Equal(t, "bot", info.DeviceType)
	assert.True(t, info.IsBot)
}

func TestParse_Empty_UnknownDefaults(t *testing.T) {
	info := useragent.Parse("")

	assert.Equal(t, "unknown", info.DeviceType)
	assert.Equal(t, "Unknown", info.Browser)
	assert.Equal(t, "Unknown", info.OS)
}

func TestFingerprint_StableAcrossBrowserVersions(t *testing.T) {
	a := useragent.Parse(chromeWin120)
	b := useragent.Parse(chromeWin126)

	assert.NotEqual(t, a.Browser, b.Browser)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_DiffersAcrossDevices(t *testing.T) {
	desktop := useragent.Parse(chromeWin120)
	phone := useragent.Parse(safariPhone)

	assert.NotEqual(t, desktop.Fingerprint(), phone.Fingerprint())
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := useragent.Parse(chromeWin120)
	b := useragent.Parse(chromeWin120)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}
