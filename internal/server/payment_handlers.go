package server

import (
	"bookswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CheckoutRequest is the body of POST /api/payments/checkout.
type CheckoutRequest struct {
	PackageID string `json:"package_id"`
}

// VerifyPaymentRequest is the body of POST /api/payments/verify.
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

// GetPointPackages handles GET /api/payments/packages
func (s *Server) GetPointPackages(c *fiber.Ctx) error {
	return c.JSON(s.paymentService.Packages())
}

// GetMyPayments handles GET /api/payments
func (s *Server) GetMyPayments(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	list, err := s.paymentService.ListPayments(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// CreateCheckout handles POST /api/payments/checkout
// @Summary Start a point package checkout
// @Tags payments
// @Accept json
// @Produce json
// @Param body body CheckoutRequest true "Package"
// @Success 200 {object} service.CheckoutResult
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /payments/checkout [post]
func (s *Server) CreateCheckout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req CheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.PackageID == "" {
		return respondError(c, models.NewValidationError("package_id is required"))
	}

	result, err := s.paymentService.Checkout(c.UserContext(), userID, req.PackageID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// VerifyPayment handles POST /api/payments/verify. A session is credited at most once.
func (s *Server) VerifyPayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req VerifyPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.SessionID == "" {
		return respondError(c, models.NewValidationError("session_id is required"))
	}

	result, err := s.paymentService.Verify(c.UserContext(), userID, req.SessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
