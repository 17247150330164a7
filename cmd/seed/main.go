// Command main runs the database seeder for BookSwap.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"bookswap/internal/config"
	"bookswap/internal/database"
	"bookswap/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of profiles to create")
	booksPerUser := flag.Int("books", 3, "Books listed by each profile")
	numRequests := flag.Int("requests", 30, "Pending requests to attempt")
	numStalls := flag.Int("stalls", 5, "Exchange stalls to create")
	cities := flag.String("cities", "", "Comma-separated city names (default: all bundled cities)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a bundled seeder preset (e.g., demo)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	var res *seed.Result
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring other flags)\n", *preset)
		res, err = s.ApplyPreset(*preset)
	} else {
		opts := seed.Options{
			NumUsers:     *numUsers,
			BooksPerUser: *booksPerUser,
			NumRequests:  *numRequests,
			NumStalls:    *numStalls,
			MaxDays:      90,
		}
		if *cities != "" {
			opts.CityNames = strings.Split(*cities, ",")
		}
		res, err = s.Seed(opts)
	}
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d profiles, %d books, %d requests, %d stalls.",
		len(res.Profiles), len(res.Books), res.Requests, res.Stalls)
}
