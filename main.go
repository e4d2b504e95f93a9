package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

func main() {
	log.SetPrefix("smartnutri/go-api: ")
	log.SetFlags(0)

	// Optional .env for GEMINI_API_KEY, SNAPSHOT_DB, PORT.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	dbPath := os.Getenv("SNAPSHOT_DB")
	if dbPath == "" {
		dbPath = "./smartnutri.db"
	}
	db, err := openSnapshotDB(dbPath)
	if err != nil {
		log.Fatalf("failed to open snapshot db %s: %v", dbPath, err)
	}
	defer db.Close()

	h := &Handler{
		store:         newStore(db),
		geminiBaseURL: defaultGeminiBaseURL,
	}

	router := gin.Default()
	router.SetTrustedProxies(nil)

	// The web UI is served from a different local port during development.
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	router.Use(cors.New(config))

	h.registerRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Fatal(router.Run("localhost:" + port))
}
