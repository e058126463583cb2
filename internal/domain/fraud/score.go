package fraud

import "strings"

// Signal weights. Additive, final score capped at 100.
const (
	WeightVPN            = 30
	WeightProxy          = 30
	WeightTor            = 40
	WeightDatacenter     = 20
	WeightDatacenterHost = 40
	WeightDeviceChanged  = 20
	WeightFrequency      = 25
	WeightFrequencyBurst = 40
	WeightDuplicateClick = 30
	WeightFastAction     = 20
	WeightBotSignature   = 25
)

// Session frequency bands (events per rolling hour)
const (
	frequencyElevated = 5
	frequencyBurst    = 10
)

// Time-to-action below this is considered bot-like
const fastActionThresholdMs = 500

// Risk classification thresholds
const (
	thresholdMedium   = 26
	thresholdHigh     = 51
	thresholdCritical = 76

	// Any score at or above this marks the event as fraud
	fraudThreshold = 15
)

// botKeywords is the known bot signature list matched against the user agent.
// Matching is case-insensitive substring.
var botKeywords = []string{
	"bot", "crawler", "spider", "scraper", "curl", "wget",
	"python-requests", "httpclient", "headless", "phantomjs", "selenium",
}

// Score computes the weighted fraud score for a signal bundle. It is a pure
// function of its input: same bundle, same score.
func Score(bundle SignalBundle) FraudScore {
	score := 0
	flags := make([]string, 0, 4)

	if bundle.IP.IsVPN {
		score += WeightVPN
		flags = append(flags, FlagVPN)
	}
	if bundle.IP.IsProxy {
		score += WeightProxy
		flags = append(flags, FlagProxy)
	}
	if bundle.IP.IsTor {
		score += WeightTor
		flags = append(flags, FlagTor)
	}
	if bundle.IP.IsDatacenter {
		// Hosting + datacenter together is a stronger signal than either alone
		if bundle.IP.IsHosting {
			score += WeightDatacenterHost
		} else {
			score += WeightDatacenter
		}
		flags = append(flags, FlagDatacenter)
	}

	if bundle.DeviceChanged {
		score += WeightDeviceChanged
		flags = append(flags, FlagDeviceChanged)
	}

	switch {
	case bundle.EventsLastHour >= frequencyBurst:
		score += WeightFrequencyBurst
		flags = append(flags, FlagSessionBurst)
	case bundle.EventsLastHour >= frequencyElevated:
		score += WeightFrequency
		flags = append(flags, FlagSessionFrequency)
	}

	if bundle.DuplicateClick {
		score += WeightDuplicateClick
		flags = append(flags, FlagDuplicateClick)
	}

	if bundle.TimeToActionMs > 0 && bundle.TimeToActionMs < fastActionThresholdMs {
		score += WeightFastAction
		flags = append(flags, FlagFastAction)
	}

	if MatchesBotSignature(bundle.UserAgent) {
		score += WeightBotSignature
		flags = append(flags, FlagBotSignature)
	}

	if score > 100 {
		score = 100
	}

	return FraudScore{
		Score:     score,
		RiskLevel: ClassifyScore(score),
		Flags:     flags,
		IsFraud:   score >= fraudThreshold,
	}
}

// ClassifyScore maps a 0-100 score onto a risk level.
func ClassifyScore(score int) RiskLevel {
	switch {
	case score >= thresholdCritical:
		return RiskLevelCritical
	case score >= thresholdHigh:
		return RiskLevelHigh
	case score >= thresholdMedium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// MatchesBotSignature reports whether the user agent matches the known bot
// keyword list.
func MatchesBotSignature(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, kw := range botKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	return false
}
