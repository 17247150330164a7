package service

import "bookswap/internal/models"

// Action names an operation guarded by a reputation threshold.
type Action string

// Gated actions.
const (
	ActionChat    Action = "chat"
	ActionForum   Action = "forum"
	ActionRequest Action = "request"
)

var reputationThresholds = map[Action]int{
	ActionChat:    50,
	ActionForum:   30,
	ActionRequest: 20,
}

// GateDecision is the outcome of a reputation check.
type GateDecision struct {
	Allowed  bool `json:"allowed"`
	Required int  `json:"required"`
	Current  int  `json:"current"`
	Deficit  int  `json:"deficit"`
}

// RequiredReputation returns the threshold for action. Unknown actions need 0.
func RequiredReputation(action Action) int {
	return reputationThresholds[action]
}

// CanPerform decides whether a profile with the given reputation may perform action.
func CanPerform(action Action, current int) GateDecision {
	required := RequiredReputation(action)
	return GateDecision{
		Allowed:  current >= required,
		Required: required,
		Current:  current,
		Deficit:  max(0, required-current),
	}
}

// Err converts a denied decision into a REPUTATION_TOO_LOW error, or nil when allowed.
func (d GateDecision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	return models.NewReputationError(string(action), d.Required, d.Current)
}
