package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[migrate] open sqlite: %v", err)
	}
	defer store.Close()

	if err := store.CreateTables(context.Background()); err != nil {
		logging.Fatalf("[migrate] create tables: %v", err)
	}
	logging.Infof("[migrate] alert audit schema ready at %s", store.Path())
}
