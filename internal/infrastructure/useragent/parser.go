// Package useragent derives device information and a stable fingerprint from
// a raw user-agent string.
package useragent

import (
	"fmt"
	"hash/fnv"
	"strings"

	ua "github.com/mileusna/useragent"
)

// DeviceInfo is the parsed view of a user-agent.
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // desktop, mobile, tablet, bot, unknown
	Browser    string `json:"browser"`     // name + version, e.g. "Chrome 126.0"
	// BrowserFamily is the name without version, used for fingerprinting so
	// minor browser upgrades do not read as a device change.
	BrowserFamily string `json:"browser_family"`
	OS            string `json:"os"`
	IsBot         bool   `json:"is_bot"`
}

// Parse extracts device info from a user-agent string. Unknown fields come
// back as "Unknown" rather than empty so stored clicks stay queryable.
func Parse(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{DeviceType: "unknown", Browser: "Unknown", BrowserFamily: "Unknown", OS: "Unknown"}
	}

	parsed := ua.Parse(userAgent)

	info := DeviceInfo{
		BrowserFamily: parsed.Name,
		OS:            parsed.OS,
		IsBot:         parsed.Bot,
	}

	switch {
	case parsed.Bot:
		info.DeviceType = "bot"
	case parsed.Mobile:
		info.DeviceType = "mobile"
	case parsed.Tablet:
		info.DeviceType = "tablet"
	case parsed.Desktop:
		info.DeviceType = "desktop"
	default:
		info.DeviceType = "unknown"
	}

	if info.BrowserFamily == "" {
		info.BrowserFamily = "Unknown"
	}
	if info.OS == "" {
		info.OS = "Unknown"
	}

	info.Browser = info.BrowserFamily
	if parsed.Version != "" {
		info.Browser = fmt.Sprintf("%s %s", info.BrowserFamily, parsed.Version)
	}

	return info
}

// Fingerprint returns a stable hash over device type, OS and browser family.
// The full version string is deliberately excluded.
func (d DeviceInfo) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", d.DeviceType, d.OS, d.BrowserFamily)
	return fmt.Sprintf("%016x", h.Sum64())
}
