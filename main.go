package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"tourloop/api"
	"tourloop/config"
	"tourloop/events"
	"tourloop/genapi"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	settings := config.Load()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	genClient := genapi.NewClient(settings.GenerationAPIURL, settings.GenerationAPIKey)

	var bus events.Bus
	if len(settings.KafkaBrokers) > 0 {
		kafkaBus, err := events.NewKafkaBus(events.KafkaConfig{
			Brokers: settings.KafkaBrokers,
			Topic:   settings.KafkaTopic,
			GroupID: settings.KafkaGroupID,
		})
		if err != nil {
			log.Fatalf("failed to create Kafka event feed: %v", err)
		}
		if err := kafkaBus.Start(context.Background()); err != nil {
			log.Fatalf("failed to start Kafka event feed: %v", err)
		}
		defer kafkaBus.Close()
		bus = kafkaBus
	} else {
		log.Println("KAFKA_BROKERS not set; using in-process event feed")
		bus = events.NewInProcBus()
	}

	server := api.NewServer(genClient, bus)
	r := api.NewRouter(server)

	log.Printf("Starting relay server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  POST /api/generate-transition")
	log.Println("  GET  /api/progress-stream/:projectId")
	log.Println("  GET  /api/proxy-image")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
