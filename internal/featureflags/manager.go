package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Known flags.
const (
	// AIValuation routes new listings through the Gemini valuer when a key is configured.
	AIValuation = "ai_valuation"
	// NearbySearch enables distance filtering on the book listing.
	NearbySearch = "nearby_search"
	// Payments exposes point purchases.
	Payments = "payments"
	// ManualPoints lets a user overwrite their own point balance. Off unless configured.
	ManualPoints = "manual_points"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "nearby_search=on,payments=25%,ai_valuation=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name string, userID uuid.UUID) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == uuid.Nil {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// EnabledByDefault is Enabled for flags that stay on unless explicitly configured.
func (m *Manager) EnabledByDefault(name string, userID uuid.UUID) bool {
	if m == nil {
		return true
	}
	if _, ok := m.flags[normalize(name)]; !ok {
		return true
	}
	return m.Enabled(name, userID)
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.flags)
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uuid.UUID) map[string]bool {
	out := map[string]bool{
		AIValuation:  m.EnabledByDefault(AIValuation, userID),
		NearbySearch: m.EnabledByDefault(NearbySearch, userID),
		Payments:     m.EnabledByDefault(Payments, userID),
		ManualPoints: m.Enabled(ManualPoints, userID),
	}
	if m == nil {
		return out
	}
	for name := range m.flags {
		if _, known := out[name]; !known {
			out[name] = m.Enabled(name, userID)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID.String()))
	return int(h.Sum32() % 100)
}
