package db

import (
	"log"
	"mou-dashboard/internal/store"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&store.RecordRow{},
		&store.SupplementalRow{},
	)

	if err != nil {
		log.Fatal(err)
	}
}
