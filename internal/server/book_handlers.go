package server

import (
	"bookswap/internal/featureflags"
	"bookswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBookRequest is the body of POST /api/books.
type CreateBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
}

// UpdateBookRequest is the body of PUT /api/books/:id. Omitted fields are left unchanged.
type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	Condition   *string `json:"condition"`
	IsAvailable *bool   `json:"is_available"`
}

// GetBooks handles GET /api/books
// @Summary Browse book listings
// @Description nearby=true limits results to radius km (default 20) around the caller's location.
// @Tags books
// @Produce json
// @Param search query string false "Title or author"
// @Param my_books query bool false "Only the caller's books"
// @Param nearby query bool false "Only books near the caller"
// @Param radius query number false "Radius in km"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Book
// @Security BearerAuth
// @Router /books [get]
func (s *Server) GetBooks(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	books, err := s.bookService.ListBooks(c.UserContext(), service.ListBooksInput{
		ViewerID: userID,
		Search:   c.Query("search"),
		MyBooks:  c.QueryBool("my_books"),
		Nearby:   c.QueryBool("nearby") && s.featureFlags.EnabledByDefault(featureflags.NearbySearch, userID),
		RadiusKm: c.QueryFloat("radius"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(books)
}

// GetBook handles GET /api/books/:id
func (s *Server) GetBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	book, err := s.bookService.GetBook(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(book)
}

// CreateBook handles POST /api/books
// @Summary List a book
// @Description The listing is valued and the value is credited to the owner.
// @Tags books
// @Accept json
// @Produce json
// @Param body body CreateBookRequest true "Book"
// @Success 201 {object} models.Book
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /books [post]
func (s *Server) CreateBook(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req CreateBookRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	book, err := s.bookService.CreateBook(c.UserContext(), service.CreateBookInput{
		OwnerID:     userID,
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Condition:   req.Condition,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// UpdateBook handles PUT /api/books/:id
func (s *Server) UpdateBook(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateBookRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	book, err := s.bookService.UpdateBook(c.UserContext(), service.UpdateBookInput{
		UserID:      userID,
		BookID:      id,
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Condition:   req.Condition,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(book)
}

// DeleteBook handles DELETE /api/books/:id
// @Summary Delete a listing
// @Description The book's value is deducted from the owner, never below 0.
// @Tags books
// @Param id path int true "Book ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /books/{id} [delete]
func (s *Server) DeleteBook(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.bookService.DeleteBook(c.UserContext(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadBookImages handles POST /api/books/:id/images (multipart field "images").
// replace=true drops the existing pictures first.
func (s *Server) UploadBookImages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	uploads, err := readUploads(c, "images", maxImagesPerUpload)
	if err != nil {
		return respondError(c, err)
	}

	replace := c.QueryBool("replace")
	for i, upload := range uploads {
		if _, err := s.bookService.AddImage(c.UserContext(), userID, id, upload, replace && i == 0); err != nil {
			return respondError(c, err)
		}
	}

	book, err := s.bookService.GetBook(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}
