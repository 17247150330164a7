package server

import (
	"bookswap/internal/featureflags"
	"bookswap/internal/geocoding"
	"bookswap/internal/models"
	"bookswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpsertProfileRequest is the body of POST /api/profile.
type UpsertProfileRequest struct {
	Username string                   `json:"username"`
	Location *geocoding.LocationInput `json:"location"`
}

// UpdateProfileRequest is the body of PUT /api/profile/me. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Username *string                  `json:"username"`
	Location *geocoding.LocationInput `json:"location"`
}

// UpsertProfile handles POST /api/profile
// @Summary Create or refresh the caller's profile
// @Description Called after sign-in. New profiles start with 0 points and reputation 100.
// @Tags profile
// @Accept json
// @Produce json
// @Param body body UpsertProfileRequest true "Profile"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [post]
func (s *Server) UpsertProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req UpsertProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	loc, err := parseLocation(req.Location)
	if err != nil {
		return respondError(c, err)
	}

	profile, err := s.profileService.UpsertProfile(c.UserContext(), service.UpsertProfileInput{
		UserID:   userID,
		Username: req.Username,
		Location: loc,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/profile/me
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	profile, err := s.profileService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profile/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseProfileID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.profileService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/profile/me
// @Summary Update username or location
// @Description A new location is copied onto every book the caller owns.
// @Tags profile
// @Accept json
// @Produce json
// @Param body body UpdateProfileRequest true "Changes"
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /profile/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	loc, err := parseLocation(req.Location)
	if err != nil {
		return respondError(c, err)
	}

	profile, err := s.profileService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   userID,
		Username: req.Username,
		Location: loc,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// DeleteMyProfile handles DELETE /api/profile/me
func (s *Server) DeleteMyProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	if err := s.profileService.DeleteProfile(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMyStats handles GET /api/profile/me/stats
func (s *Server) GetMyStats(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	stats, err := s.profileService.GetStats(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// UpdatePointsRequest is the body of PUT /api/profile/me/points.
type UpdatePointsRequest struct {
	Points *int `json:"points"`
}

// UpdateMyPoints handles PUT /api/profile/me/points. It answers 403 unless
// the manual_points flag is on for the caller.
func (s *Server) UpdateMyPoints(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	if !s.featureFlags.Enabled(featureflags.ManualPoints, userID) {
		return respondError(c, models.NewForbiddenError("Setting points directly is disabled"))
	}
	var req UpdatePointsRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.Points == nil {
		return respondError(c, models.NewValidationError("points is required"))
	}

	profile, err := s.ledger.SetPoints(c.UserContext(), userID, *req.Points)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// ConvertPointsRequest is the body of POST /api/profile/me/convert.
type ConvertPointsRequest struct {
	Points int `json:"points"`
}

// ConvertPoints handles POST /api/profile/me/convert
// @Summary Convert points into reputation
// @Description Every 500 points buy 5 reputation.
// @Tags profile
// @Accept json
// @Produce json
// @Param body body ConvertPointsRequest true "Points to spend"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse "INVALID_AMOUNT"
// @Failure 422 {object} models.ErrorResponse "INSUFFICIENT_POINTS"
// @Security BearerAuth
// @Router /profile/me/convert [post]
func (s *Server) ConvertPoints(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req ConvertPointsRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	profile, err := s.ledger.ConvertPointsToReputation(c.UserContext(), userID, req.Points)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// DeductReputationRequest is the body of POST /api/profile/:id/deduct-reputation.
type DeductReputationRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// DeductReputation handles POST /api/profile/:id/deduct-reputation
// @Summary Penalise a profile's reputation
// @Description Callers may only penalise their own profile, as the content filter does
// @Description for flagged posts. Amount defaults to 5 and is capped at 50. Reputation never drops below 0.
// @Tags profile
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param body body DeductReputationRequest false "Deduction"
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /profile/{id}/deduct-reputation [post]
func (s *Server) DeductReputation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	targetID, err := s.parseProfileID(c, "id")
	if err != nil {
		return nil
	}
	if targetID != userID {
		return respondError(c, models.NewForbiddenError("You can only deduct reputation from your own profile"))
	}
	var req DeductReputationRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return nil
		}
	}

	profile, err := s.ledger.DeductReputation(c.UserContext(), targetID, req.Amount, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// CheckReputation handles GET /api/profile/me/reputation-check?action=chat|forum|request
// @Summary Evaluate the reputation gate
// @Tags profile
// @Produce json
// @Param action query string true "chat, forum or request"
// @Success 200 {object} service.GateDecision
// @Security BearerAuth
// @Router /profile/me/reputation-check [get]
func (s *Server) CheckReputation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	action := service.Action(c.Query("action"))
	switch action {
	case service.ActionChat, service.ActionForum, service.ActionRequest:
	default:
		return respondError(c, models.NewValidationError("action must be chat, forum or request"))
	}

	decision, err := s.profileService.CheckReputation(c.UserContext(), userID, action)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(decision)
}

// UploadAvatar handles POST /api/profile/me/avatar (multipart field "image")
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	uploads, err := readUploads(c, "image", 1)
	if err != nil {
		return respondError(c, err)
	}

	profile, err := s.profileService.UploadAvatar(c.UserContext(), userID, uploads[0])
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
