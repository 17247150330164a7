// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"bookswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// City is a seeding anchor; profiles are scattered a few kilometres around it.
type City struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

var defaultCities = []City{
	{Name: "Pune", Lat: 18.5204, Lon: 73.8567},
	{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
	{Name: "Bengaluru", Lat: 12.9716, Lon: 77.5946},
	{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
}

var stallSuffixes = []string{"Book Corner", "Reading Nook", "Swap Shelf", "Paperback Point"}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewPCG(uint64(seed), 0)), nextID: 1000}
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.IntN(maxDays))*24*time.Hour +
		time.Duration(f.rng.IntN(24))*time.Hour +
		time.Duration(f.rng.IntN(60))*time.Minute
	return time.Now().Add(-back)
}

// jitter scatters a coordinate up to roughly 5 km from the anchor.
func (f *Factory) jitter(v float64) *float64 {
	out := v + (f.rng.Float64()-0.5)*0.09
	return &out
}

func (f *Factory) create(kind string, value any, setID func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		setID(f.nextID)
		log.Printf("[dry-run] %s: %+v", kind, value)
		return nil
	}
	return f.db.Create(value).Error
}

// BuildProfile constructs a profile living near city without persisting it.
func (f *Factory) BuildProfile(city City, overrides ...func(*models.Profile)) *models.Profile {
	username := strings.ToLower(gofakeit.Username())
	username = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return -1
	}, username)
	if len(username) > 24 {
		username = username[:24]
	}
	p := &models.Profile{
		ID:         uuid.New(),
		Username:   fmt.Sprintf("%s%d", username, gofakeit.Number(100, 999)),
		Location:   fmt.Sprintf("%s, %s", gofakeit.Street(), city.Name),
		Latitude:   f.jitter(city.Lat),
		Longitude:  f.jitter(city.Lon),
		Points:     gofakeit.Number(0, 40) * 5,
		Reputation: models.DefaultReputation,
		ImageURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	p.CreatedAt = f.pastTime()
	for _, override := range overrides {
		override(p)
	}
	return p
}

// CreateProfile constructs and persists a sample profile near city.
func (f *Factory) CreateProfile(city City, overrides ...func(*models.Profile)) (*models.Profile, error) {
	p := f.BuildProfile(city, overrides...)
	if f.opts.DryRun {
		log.Printf("[dry-run] CreateProfile: %s near %s", p.Username, city.Name)
		return p, nil
	}
	if err := f.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// BuildBook constructs a listing for owner, copying the owner's location.
func (f *Factory) BuildBook(owner *models.Profile, overrides ...func(*models.Book)) *models.Book {
	condition := models.BookConditionUsed
	if f.rng.IntN(4) == 0 {
		condition = models.BookConditionNew
	}
	b := &models.Book{
		OwnerID:     owner.ID,
		Title:       gofakeit.BookTitle(),
		Author:      gofakeit.BookAuthor(),
		Description: gofakeit.Paragraph(1, 2, 12, " "),
		Condition:   condition,
		Location:    owner.Location,
		Latitude:    owner.Latitude,
		Longitude:   owner.Longitude,
		Points:      10 + f.rng.IntN(19)*5,
		IsAvailable: true,
	}
	b.CreatedAt = f.pastTime()
	for _, override := range overrides {
		override(b)
	}
	return b
}

// CreateBook persists a listing. Title collisions for the same owner get a volume suffix.
func (f *Factory) CreateBook(owner *models.Profile, overrides ...func(*models.Book)) (*models.Book, error) {
	b := f.BuildBook(owner, overrides...)
	if f.opts.DryRun {
		return b, f.create("CreateBook", b, func(id uint) { b.ID = id })
	}
	for attempt := 2; ; attempt++ {
		err := f.db.Create(b).Error
		if err == nil {
			return b, nil
		}
		if attempt > 5 {
			return nil, err
		}
		b.ID = 0
		b.Title = fmt.Sprintf("%s (Vol. %d)", strings.TrimSuffix(b.Title, fmt.Sprintf(" (Vol. %d)", attempt-1)), attempt)
	}
}

// CreateRequest persists a pending request from requester for book.
func (f *Factory) CreateRequest(book *models.Book, requester *models.Profile) (*models.Exchange, error) {
	e := &models.Exchange{
		BookID:     book.ID,
		FromUserID: book.OwnerID,
		ToUserID:   requester.ID,
		PointsUsed: book.Points,
		Status:     models.ExchangeStatusPending,
	}
	return e, f.create("CreateRequest", e, func(id uint) { e.ID = id })
}

// CreateWishlistItem persists a wishlist entry.
func (f *Factory) CreateWishlistItem(user *models.Profile, book *models.Book) (*models.WishlistItem, error) {
	item := &models.WishlistItem{UserID: user.ID, BookID: book.ID}
	return item, f.create("CreateWishlistItem", item, func(id uint) { item.ID = id })
}

// CreateHistoryEntry records that reader had book in their city.
func (f *Factory) CreateHistoryEntry(book *models.Book, reader *models.Profile, city City) (*models.BookHistoryEntry, error) {
	entry := &models.BookHistoryEntry{
		BookID:          book.ID,
		UserID:          reader.ID,
		City:            city.Name,
		ReadingDuration: fmt.Sprintf("%d weeks", 1+f.rng.IntN(8)),
		Notes:           gofakeit.Sentence(10),
	}
	return entry, f.create("CreateHistoryEntry", entry, func(id uint) { entry.ID = id })
}

// CreateStall persists an exchange stall near city.
func (f *Factory) CreateStall(creator *models.Profile, city City) (*models.ExchangeStall, error) {
	stall := &models.ExchangeStall{
		CreatedBy: creator.ID,
		Name:      fmt.Sprintf("%s %s", gofakeit.LastName(), stallSuffixes[f.rng.IntN(len(stallSuffixes))]),
		Location:  fmt.Sprintf("%s, %s", gofakeit.Street(), city.Name),
		Latitude:  f.jitter(city.Lat),
		Longitude: f.jitter(city.Lon),
		Contact:   gofakeit.Phone(),
		Timings:   "Sat-Sun 10:00-18:00",
	}
	return stall, f.create("CreateStall", stall, func(id uint) { stall.ID = id })
}
