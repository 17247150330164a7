package server

import (
	"slices"
	"strings"

	"bookswap/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// FeatureFlagState is one flag as the caller sees it.
type FeatureFlagState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Rule    string `json:"rule,omitempty"`
}

// GetFeatureFlags lists every known or configured flag evaluated for the caller.
// Rule is the configured value (on, off, 25%) and is empty for defaults.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	rules := s.featureFlags.Raw()
	flags := make([]FeatureFlagState, 0, len(rules))
	for name, enabled := range s.featureFlags.Snapshot(userID) {
		flags = append(flags, FeatureFlagState{Name: name, Enabled: enabled, Rule: rules[name]})
	}
	slices.SortFunc(flags, func(a, b FeatureFlagState) int { return strings.Compare(a.Name, b.Name) })

	return c.JSON(fiber.Map{"flags": flags})
}
