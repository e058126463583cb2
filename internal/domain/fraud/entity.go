package fraud

// RiskLevel represents the severity of fraud risk
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Flag names attached to a score, one per contributing signal
const (
	FlagVPN              = "vpn_detected"
	FlagProxy            = "proxy_detected"
	FlagTor              = "tor_detected"
	FlagDatacenter       = "datacenter_ip"
	FlagDeviceChanged    = "device_fingerprint_changed"
	FlagSessionFrequency = "session_frequency"
	FlagSessionBurst     = "session_frequency_burst"
	FlagDuplicateClick   = "duplicate_click"
	FlagFastAction       = "time_to_action"
	FlagBotSignature     = "bot_signature"
)

// IPSignals is the result of a Fraud Signal Provider lookup for one address.
// The zero value means "clean/unknown" and contributes no score weight.
type IPSignals struct {
	IsVPN        bool   `json:"is_vpn"`
	IsProxy      bool   `json:"is_proxy"`
	IsTor        bool   `json:"is_tor"`
	IsDatacenter bool   `json:"is_datacenter"`
	IsHosting    bool   `json:"is_hosting"`
	Country      string `json:"country"`
}

// SignalBundle is the full input to the scoring function. The Engine assembles
// it from the signal provider, device cache and session cache; Score itself
// keeps no state.
type SignalBundle struct {
	IP IPSignals

	// DeviceChanged is true when the device fingerprint differs from the one
	// seen on the previous event for the same user identity.
	DeviceChanged bool

	// EventsLastHour counts prior events for this user in a rolling 1h window.
	EventsLastHour int

	// DuplicateClick is true when the same user+offer+placement clicked within
	// the duplicate window.
	DuplicateClick bool

	// TimeToActionMs is the elapsed time between click and action in
	// milliseconds; zero means not measured.
	TimeToActionMs int64

	UserAgent string
}

// FraudScore is the derived risk annotation for a click or login event.
// It is advisory: it never blocks the event that produced it.
type FraudScore struct {
	Score     int       `json:"score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Flags     []string  `json:"flags"`
	IsFraud   bool      `json:"is_fraud"`
}

// Suspicious reports whether the score crosses the medium-risk line.
func (s FraudScore) Suspicious() bool {
	return s.Score >= thresholdMedium
}
