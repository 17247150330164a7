package server

import (
	"bookswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateRequestRequest is the body of POST /api/requests.
type CreateRequestRequest struct {
	BookID        uint `json:"book_id"`
	OfferedPoints int  `json:"offered_points"`
}

// RespondRequest is the body of PUT /api/requests/:id. Older clients send
// status ("completed"/"cancelled") instead of decision.
type RespondRequest struct {
	Decision string `json:"decision"`
	Status   string `json:"status"`
}

// CreateRequest handles POST /api/requests
// @Summary Request a book
// @Description Opens a pending request. Price falls back to the listing value, then 10.
// @Tags requests
// @Accept json
// @Produce json
// @Param body body CreateRequestRequest true "Request"
// @Success 201 {object} models.Exchange
// @Failure 403 {object} models.ErrorResponse "SELF_REQUEST or REPUTATION_TOO_LOW"
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "DUPLICATE_REQUEST"
// @Failure 422 {object} models.ErrorResponse "INSUFFICIENT_POINTS"
// @Security BearerAuth
// @Router /requests [post]
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req CreateRequestRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.BookID == 0 {
		return respondError(c, models.NewValidationError("book_id is required"))
	}
	if req.OfferedPoints < 0 {
		return respondError(c, models.NewInvalidAmountError("offered_points cannot be negative"))
	}

	exchange, err := s.exchangeService.CreateRequest(c.UserContext(), userID, req.BookID, req.OfferedPoints)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(exchange)
}

// RespondToRequest handles PUT /api/requests/:id
// @Summary Accept or reject a request
// @Description Accept transfers the book and the points in one transaction and cancels competing requests.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param body body RespondRequest true "Decision"
// @Success 200 {object} models.Exchange
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "INVALID_TRANSITION"
// @Security BearerAuth
// @Router /requests/{id} [put]
func (s *Server) RespondToRequest(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req RespondRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	raw := req.Decision
	if raw == "" {
		raw = req.Status
	}
	decision, ok := models.ParseDecision(raw)
	if !ok {
		return respondError(c, models.NewValidationError("Decision must be accept or reject"))
	}

	exchange, err := s.exchangeService.Respond(c.UserContext(), id, userID, decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(exchange)
}

// GetRequests handles GET /api/requests?type=incoming|outgoing
func (s *Server) GetRequests(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	direction := models.RequestDirection(c.Query("type", string(models.RequestsIncoming)))

	exchanges, err := s.exchangeService.ListRequests(c.UserContext(), userID, direction)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(exchanges)
}
