package seed

import (
	_ "embed"
	"fmt"
	"log"
	"slices"
	"strings"

	"bookswap/internal/database"
	"bookswap/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int      `yaml:"users"`
	BooksPerUser int      `yaml:"books_per_user"`
	NumRequests  int      `yaml:"requests"`
	NumStalls    int      `yaml:"stalls"`
	MaxDays      int      `yaml:"max_days"`
	CityNames    []string `yaml:"cities"`
	DryRun       bool     `yaml:"-"`
	RandomSeed   int64    `yaml:"-"`
}

// Result summarises what a seeding run created.
type Result struct {
	Profiles []*models.Profile
	Books    []*models.Book
	Requests int
	Stalls   int
}

//go:embed presets.yaml
var presetsYAML []byte

// Presets returns the named presets bundled with the binary.
func Presets() (map[string]Options, error) {
	return ParsePresets(presetsYAML)
}

// ParsePresets decodes a YAML document mapping preset names to options.
func ParsePresets(raw []byte) (map[string]Options, error) {
	var presets map[string]Options
	if err := yaml.Unmarshal(raw, &presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return presets, nil
}

// Seeder populates the database with demo data.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll deletes every row of every schema-managed table, children first.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	all := database.PersistentModels()
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range slices.Backward(all) {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// ApplyPreset runs Seed with a bundled preset.
func (s *Seeder) ApplyPreset(name string) (*Result, error) {
	presets, err := Presets()
	if err != nil {
		return nil, err
	}
	opts, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return s.Seed(opts)
}

// Seed creates profiles with books around the configured cities, then
// pending requests, wishlist entries, reading history and exchange stalls
// between them.
func (s *Seeder) Seed(opts Options) (*Result, error) {
	cities, err := resolveCities(opts.CityNames)
	if err != nil {
		return nil, err
	}
	if opts.NumUsers < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", opts.NumUsers)
	}
	log.Printf("🌱 Seeding %d profiles with %d books each across %d cities...", opts.NumUsers, opts.BooksPerUser, len(cities))

	f := NewFactory(s.db, opts)
	res := &Result{}

	for i := range opts.NumUsers {
		city := cities[i%len(cities)]
		p, err := f.CreateProfile(city)
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		res.Profiles = append(res.Profiles, p)
		for range opts.BooksPerUser {
			b, err := f.CreateBook(p)
			if err != nil {
				return nil, fmt.Errorf("create book: %w", err)
			}
			res.Books = append(res.Books, b)
		}
	}
	log.Printf("✓ %d profiles and %d books created", len(res.Profiles), len(res.Books))

	if len(res.Books) > 0 {
		for i := range opts.NumRequests {
			book := res.Books[f.rng.IntN(len(res.Books))]
			requester := res.Profiles[f.rng.IntN(len(res.Profiles))]
			if requester.ID == book.OwnerID {
				continue
			}
			if _, err := f.CreateRequest(book, requester); err != nil {
				// The partial unique index rejects a second pending request from the same user.
				continue
			}
			res.Requests++
			if i%2 == 0 {
				if _, err := f.CreateWishlistItem(requester, book); err == nil && i%4 == 0 {
					_, _ = f.CreateHistoryEntry(book, requester, cities[f.rng.IntN(len(cities))])
				}
			}
		}
	}
	log.Printf("✓ %d pending requests created", res.Requests)

	for i := range opts.NumStalls {
		if _, err := f.CreateStall(res.Profiles[i%len(res.Profiles)], cities[i%len(cities)]); err != nil {
			return nil, fmt.Errorf("create stall: %w", err)
		}
		res.Stalls++
	}

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}

// Demo seeds the "demo" preset once; it is a no-op when profiles already exist.
func Demo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Profile{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := NewSeeder(db).ApplyPreset("demo")
	return err
}

func resolveCities(names []string) ([]City, error) {
	if len(names) == 0 {
		return defaultCities, nil
	}
	out := make([]City, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(defaultCities, func(c City) bool { return strings.EqualFold(c.Name, strings.TrimSpace(name)) })
		if idx < 0 {
			return nil, fmt.Errorf("unknown city %q", name)
		}
		out = append(out, defaultCities[idx])
	}
	return out, nil
}
