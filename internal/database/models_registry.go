package database

import "bookswap/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Book{},
		&models.BookImage{},
		&models.Exchange{},
		&models.Notification{},
		&models.WishlistItem{},
		&models.BookHistoryEntry{},
		&models.ExchangeStall{},
		&models.Forum{},
		&models.ForumPost{},
		&models.Conversation{},
		&models.ConversationMember{},
		&models.Message{},
		&models.Payment{},
	}
}
