package server

import (
	"bookswap/internal/models"
	"bookswap/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	UserID uuid.UUID `json:"user_id"`
	BookID *uint     `json:"book_id"`
}

// SendMessageRequest is the body of POST /api/conversations/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// CreatePostRequest is the body of POST /api/forums/:id/posts.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// CreateConversation handles POST /api/conversations
// @Summary Start or reopen a conversation
// @Description Requires reputation 50.
// @Tags chat
// @Accept json
// @Produce json
// @Param body body CreateConversationRequest true "Counterparty"
// @Success 200 {object} models.Conversation
// @Failure 403 {object} models.ErrorResponse "REPUTATION_TOO_LOW"
// @Security BearerAuth
// @Router /conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	var req CreateConversationRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	conv, err := s.chatService.StartConversation(c.UserContext(), service.StartConversationInput{
		UserID:      userID,
		OtherUserID: req.UserID,
		BookID:      req.BookID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	convs, err := s.chatService.ListConversations(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

// GetMessages handles GET /api/conversations/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	messages, err := s.chatService.ListMessages(c.UserContext(), userID, id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req SendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetBookForum handles GET /api/books/:id/forum
func (s *Server) GetBookForum(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	forum, err := s.forumService.GetForum(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forum)
}

// OpenBookForum handles POST /api/books/:id/forum. Opening an existing forum returns it.
func (s *Server) OpenBookForum(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	forum, err := s.forumService.OpenForum(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forum)
}

// GetForumPosts handles GET /api/forums/:id/posts
func (s *Server) GetForumPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	posts, err := s.forumService.ListPosts(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreateForumPost handles POST /api/forums/:id/posts
func (s *Server) CreateForumPost(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.Content == "" {
		return respondError(c, models.NewValidationError("content is required"))
	}

	post, err := s.forumService.CreatePost(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}
