package service

import (
	"context"
	"strings"

	"bookswap/internal/cache"
	"bookswap/internal/geocoding"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/repository"
	"bookswap/internal/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	db       *gorm.DB
	profiles repository.ProfileRepository
	books    repository.BookRepository
	resolver *geocoding.Resolver
	images   *ImageService
	cache    *cache.Store
}

// UpsertProfileInput creates or refreshes the caller's profile. A nil
// Location leaves the stored one untouched.
type UpsertProfileInput struct {
	UserID   uuid.UUID
	Username string
	Location geocoding.Location
}

type UpdateProfileInput struct {
	UserID   uuid.UUID
	Username *string
	Location geocoding.Location
}

func NewProfileService(
	db *gorm.DB,
	profiles repository.ProfileRepository,
	books repository.BookRepository,
	resolver *geocoding.Resolver,
	images *ImageService,
	store *cache.Store,
) *ProfileService {
	return &ProfileService{
		db:       db,
		profiles: profiles,
		books:    books,
		resolver: resolver,
		images:   images,
		cache:    store,
	}
}

// GetProfile reads through the profile cache.
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var cached models.Profile
	if s.cache.GetJSON(ctx, cache.ProfileKey(id), &cached) {
		return &cached, nil
	}
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, cache.ProfileKey(id), profile, cache.ProfileTTL)
	return profile, nil
}

// UpsertProfile is called right after sign-in. New profiles start at 0 points
// and default reputation.
func (s *ProfileService) UpsertProfile(ctx context.Context, in UpsertProfileInput) (*models.Profile, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.profiles.GetByID(ctx, in.UserID)
	if err != nil && !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.UpdateProfile(ctx, UpdateProfileInput{UserID: in.UserID, Username: &username, Location: in.Location})
	}

	profile := &models.Profile{
		ID:         in.UserID,
		Username:   username,
		Reputation: models.DefaultReputation,
	}
	if in.Location != nil {
		resolved := s.resolver.Resolve(ctx, in.Location)
		profile.Location = resolved.Text
		profile.Latitude = resolved.Latitude
		profile.Longitude = resolved.Longitude
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "profile created", "user_id", profile.ID)
	return profile, nil
}

// UpdateProfile changes the username and/or location. A new location is
// copied onto every book the user owns in the same transaction.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	fields := map[string]any{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["username"] = username
	}

	var resolved *geocoding.Resolved
	if in.Location != nil {
		r := s.resolver.Resolve(ctx, in.Location)
		resolved = &r
		fields["location"] = r.Text
		fields["latitude"] = r.Latitude
		fields["longitude"] = r.Longitude
	}
	if len(fields) == 0 {
		return s.profiles.GetByID(ctx, in.UserID)
	}

	var moved []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.profiles.WithTx(tx).UpdateFields(ctx, in.UserID, fields); err != nil {
			return err
		}
		if resolved == nil {
			return nil
		}
		books := s.books.WithTx(tx)
		ids, err := books.IDsByOwner(ctx, in.UserID)
		if err != nil {
			return err
		}
		moved = ids
		return books.UpdateLocationForOwner(ctx, in.UserID, resolved.Text, resolved.Latitude, resolved.Longitude)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.cache.InvalidateProfile(ctx, in.UserID)
	s.invalidateBooks(ctx, moved)
	return s.profiles.GetByID(ctx, in.UserID)
}

// DeleteProfile removes the profile with everything that references it, then
// deletes the stored images of removed rows.
func (s *ProfileService) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	owned, err := s.books.IDsByOwner(ctx, id)
	if err != nil {
		return err
	}
	keys, err := s.profiles.DeleteWithDependents(ctx, id)
	if err != nil {
		return err
	}
	s.cache.InvalidateProfile(ctx, id)
	s.invalidateBooks(ctx, owned)
	s.images.Remove(ctx, keys...)
	middleware.Logger.InfoContext(ctx, "profile deleted", "user_id", id, "removed_objects", len(keys))
	return nil
}

// invalidateBooks drops cached book views whose owner fields just changed.
func (s *ProfileService) invalidateBooks(ctx context.Context, ids []uint) {
	for _, id := range ids {
		s.cache.InvalidateBook(ctx, id)
	}
}

func (s *ProfileService) GetStats(ctx context.Context, id uuid.UUID) (*models.ProfileStats, error) {
	return s.profiles.Stats(ctx, id)
}

// UploadAvatar replaces the profile picture.
func (s *ProfileService) UploadAvatar(ctx context.Context, id uuid.UUID, upload UploadImageInput) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.images.Store(ctx, ImageKindAvatar, upload)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateFields(ctx, id, map[string]any{"image_url": stored.URL, "image_key": stored.Key}); err != nil {
		s.images.Remove(ctx, stored.Key)
		return nil, err
	}
	s.images.Remove(ctx, profile.ImageKey)
	s.cache.InvalidateProfile(ctx, id)
	return s.profiles.GetByID(ctx, id)
}

// CheckReputation evaluates the gate for action against the caller's current reputation.
func (s *ProfileService) CheckReputation(ctx context.Context, id uuid.UUID, action Action) (GateDecision, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return GateDecision{}, err
	}
	return CanPerform(action, profile.Reputation), nil
}
