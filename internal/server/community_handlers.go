package server

import (
	"bookswap/internal/geocoding"
	"bookswap/internal/models"
	"bookswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddWishlistRequest is the body of POST /api/wishlist.
type AddWishlistRequest struct {
	BookID uint `json:"book_id"`
}

// GetWishlist handles GET /api/wishlist
func (s *Server) GetWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	items, err := s.wishlistService.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// AddToWishlist handles POST /api/wishlist
func (s *Server) AddToWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req AddWishlistRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.BookID == 0 {
		return respondError(c, models.NewValidationError("book_id is required"))
	}

	item, err := s.wishlistService.Add(c.UserContext(), userID, req.BookID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// RemoveFromWishlist handles DELETE /api/wishlist/:bookId
func (s *Server) RemoveFromWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	bookID, err := s.parseID(c, "bookId")
	if err != nil {
		return nil
	}
	if err := s.wishlistService.Remove(c.UserContext(), userID, bookID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddHistoryRequest is the body of POST /api/books/:id/history.
type AddHistoryRequest struct {
	City            string `json:"city"`
	ReadingDuration string `json:"reading_duration"`
	Notes           string `json:"notes"`
}

// GetBookHistory handles GET /api/books/:id/history
func (s *Server) GetBookHistory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entries, err := s.historyService.List(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// AddBookHistory handles POST /api/books/:id/history
func (s *Server) AddBookHistory(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req AddHistoryRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	entry, err := s.historyService.Add(c.UserContext(), service.AddHistoryInput{
		UserID:          userID,
		BookID:          id,
		City:            req.City,
		ReadingDuration: req.ReadingDuration,
		Notes:           req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// StallRequest is the body of POST and PUT /api/stalls.
type StallRequest struct {
	Name     *string                  `json:"name"`
	Location *geocoding.LocationInput `json:"location"`
	Contact  *string                  `json:"contact"`
	Timings  *string                  `json:"timings"`
}

func (r StallRequest) input() (service.StallInput, error) {
	loc, err := parseLocation(r.Location)
	if err != nil {
		return service.StallInput{}, err
	}
	return service.StallInput{
		Name:     r.Name,
		Location: loc,
		Contact:  r.Contact,
		Timings:  r.Timings,
	}, nil
}

// GetStalls handles GET /api/stalls
func (s *Server) GetStalls(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	stalls, err := s.stallService.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stalls)
}

// CreateStall handles POST /api/stalls
func (s *Server) CreateStall(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req StallRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}

	stall, err := s.stallService.Create(c.UserContext(), userID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stall)
}

// UpdateStall handles PUT /api/stalls/:id
func (s *Server) UpdateStall(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req StallRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}

	stall, err := s.stallService.Update(c.UserContext(), userID, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stall)
}

// DeleteStall handles DELETE /api/stalls/:id
func (s *Server) DeleteStall(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.stallService.Delete(c.UserContext(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
