package server

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode"

	"bookswap/internal/geocoding"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
	maxImagesPerUpload = 5
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseProfileID extracts a profile uuid route parameter, writing a 400 on failure.
func (s *Server) parseProfileID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// currentUser returns the authenticated profile id, writing a 401 when absent.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// bindJSON parses the request body, writing a 400 on malformed input.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError renders err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// parseLocation turns an optional location body field into the tagged variant.
// A nil input means "not supplied".
func parseLocation(in *geocoding.LocationInput) (geocoding.Location, error) {
	if in == nil {
		return nil, nil
	}
	return geocoding.ParseLocation(*in)
}

// readUploads collects the files under field, capped at max.
func readUploads(c *fiber.Ctx, field string, max int) ([]service.UploadImageInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Expected multipart form data")
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, models.NewValidationError("No " + field + " file provided")
	}
	if len(headers) > max {
		return nil, models.NewValidationError("Too many files")
	}

	uploads := make([]service.UploadImageInput, 0, len(headers))
	for _, h := range headers {
		upload, err := readUpload(h)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readUpload(h *multipart.FileHeader) (service.UploadImageInput, error) {
	f, err := h.Open()
	if err != nil {
		return service.UploadImageInput{}, models.NewValidationError("Unable to read upload")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return service.UploadImageInput{}, models.NewValidationError("Unable to read upload")
	}
	return service.UploadImageInput{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "bookId" -> "book ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
