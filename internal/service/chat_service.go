package service

import (
	"context"

	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/notifications"
	"bookswap/internal/repository"
	"bookswap/internal/validation"

	"github.com/google/uuid"
)

const maxMessageLen = 4000

// ChatService provides one-to-one conversations, optionally about a book.
type ChatService struct {
	conversations repository.ConversationRepository
	profiles      repository.ProfileRepository
	books         repository.BookRepository
	publisher     EventPublisher
}

// StartConversationInput is the input for opening a conversation.
type StartConversationInput struct {
	UserID      uuid.UUID
	OtherUserID uuid.UUID
	BookID      *uint
}

// NewChatService returns a new ChatService. publisher may be nil.
func NewChatService(
	conversations repository.ConversationRepository,
	profiles repository.ProfileRepository,
	books repository.BookRepository,
	publisher EventPublisher,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		profiles:      profiles,
		books:         books,
		publisher:     publisher,
	}
}

// StartConversation returns the existing conversation between the two users
// for the same book, or opens a new one.
func (s *ChatService) StartConversation(ctx context.Context, in StartConversationInput) (*models.Conversation, error) {
	if in.OtherUserID == uuid.Nil {
		return nil, models.NewValidationError("user_id is required")
	}
	if in.OtherUserID == in.UserID {
		return nil, models.NewValidationError("Cannot create chat with yourself")
	}
	if _, err := s.profiles.GetByID(ctx, in.OtherUserID); err != nil {
		return nil, err
	}
	if in.BookID != nil {
		if _, err := s.books.GetByID(ctx, *in.BookID); err != nil {
			return nil, err
		}
	}

	existing, err := s.conversations.FindBetween(ctx, in.UserID, in.OtherUserID, in.BookID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.conversations.Create(ctx, in.BookID, in.UserID, in.OtherUserID)
}

func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.conversations.ListForUser(ctx, userID)
}

func (s *ChatService) requireMember(ctx context.Context, conversationID uint, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	ok, err := s.conversations.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewForbiddenError("You are not part of this conversation")
	}
	return conv, nil
}

func (s *ChatService) ListMessages(ctx context.Context, userID uuid.UUID, conversationID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.requireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID, limit, offset)
}

// SendMessage stores the message and pushes it to the other members' sockets.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, conversationID uint, content string) (*models.Message, error) {
	conv, err := s.requireMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	text, err := validation.RequiredText("content", content, maxMessageLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg := &models.Message{ConversationID: conversationID, SenderID: userID, Content: text}
	if err := s.conversations.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		for _, m := range conv.Members {
			if m.UserID == userID {
				continue
			}
			if err := s.publisher.PublishEvent(ctx, m.UserID, notifications.EventChatMessage, msg); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to push chat message", "conversation_id", conversationID, "recipient_id", m.UserID, "error", err)
			}
		}
	}
	return msg, nil
}
