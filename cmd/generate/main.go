package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tourloop/config"
	"tourloop/events"
	"tourloop/genapi"
	"tourloop/generation"
	"tourloop/media"
	"tourloop/promptgen"
	"tourloop/store"
	"tourloop/transport"
	"tourloop/types"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	projectID := flag.String("project", "", "project ID to generate segments for")
	prompt := flag.String("prompt", "", "motion prompt (auto-written when empty)")
	negative := flag.String("negative", "", "negative prompt")
	preset := flag.String("preset", "standard", "quality preset: draft|standard|high")
	resolution := flag.String("resolution", "480p", "resolution tier: 480p|720p|1080p")
	duration := flag.Float64("duration", 3.0, "clip duration in seconds")
	currency := flag.String("currency", "spark", "token/currency type")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("usage: generate -project <id>")
	}

	ctx := context.Background()
	settings := config.Load()

	projectStore, err := store.NewRedisStoreFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to project store: %v", err)
	}
	defer projectStore.Close()

	project, err := projectStore.LoadProject(ctx, *projectID)
	if err != nil {
		log.Fatalf("Failed to load project %s: %v", *projectID, err)
	}
	log.Printf("Loaded project %s: %d waypoints, %d segments",
		project.ID, len(project.Waypoints), len(project.Segments))

	// Close the loop if the caller has not created segments yet.
	if len(project.Segments) == 0 {
		project.Segments = types.LoopSegments(project.Waypoints)
		log.Printf("Created %d loop segments", len(project.Segments))
	}

	resolver := media.NewResolver(media.ResolverConfig{
		ProxyBaseURL: settings.ProxyBaseURL,
		S3:           initializeS3(ctx, settings),
	})

	adapter := selectTransport(ctx, settings)

	// Regenerate only segments that are not already ready.
	var pending []*types.Segment
	for _, seg := range project.Segments {
		if !seg.Playable() {
			pending = append(pending, seg)
		}
	}
	if len(pending) == 0 {
		log.Println("All segments are ready; nothing to generate")
		return
	}

	images := make(map[string]types.ImageRef, len(project.Waypoints))
	for _, wp := range project.Waypoints {
		if wp.Image != nil {
			images[wp.ID] = *wp.Image
		}
	}

	motionPrompt := *prompt
	if motionPrompt == "" {
		motionPrompt = writeMotionPrompt(ctx, project, pending[0])
		log.Printf("Motion prompt: %s", motionPrompt)
	}

	opts := generation.Options{
		Prompt:          motionPrompt,
		NegativePrompt:  *negative,
		Resolution:      types.ResolutionTier(*resolution),
		Preset:          types.PresetByName(*preset),
		DurationSeconds: *duration,
		Currency:        *currency,
	}

	orchestrator := generation.NewOrchestrator(adapter, resolver)
	log.Printf("Generating %d segment(s)...", len(pending))

	results := orchestrator.GenerateBatch(ctx, pending, images, opts, generation.Callbacks{
		Progress: func(segmentID string, percent int, worker string) {
			if worker != "" {
				log.Printf("  ⏳ %s: %d%% (%s)", segmentID, percent, worker)
			}
		},
		SegmentComplete: func(segmentID string, version types.Version) {
			log.Printf("  ✅ %s: clip ready at %s", segmentID, version.ClipURL)
		},
		SegmentError: func(segmentID string, err error) {
			log.Printf("  ❌ %s: %v", segmentID, err)
		},
		OutOfCredits: func() {
			log.Println("  💸 Out of credits - remaining failures share this cause")
		},
	})

	succeeded := 0
	for _, res := range results {
		if res != nil {
			succeeded++
		}
	}

	if err := projectStore.SaveProject(ctx, project); err != nil {
		log.Fatalf("Failed to save project: %v", err)
	}

	log.Println("\n=== Generation Summary ===")
	log.Printf("Segments attempted: %d", len(results))
	log.Printf("Succeeded:          %d", succeeded)
	log.Printf("Failed:             %d", len(results)-succeeded)
	log.Println("==========================")
}

// selectTransport picks direct mode when the caller holds a usable session,
// otherwise routes through the backend relay.
func selectTransport(ctx context.Context, settings config.Settings) transport.Adapter {
	if !settings.HasDirectSession() {
		log.Printf("Using proxied transport via %s", settings.ProxyBaseURL)
		return transport.NewProxied(settings.ProxyBaseURL, nil)
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
			log.Fatalf("Failed to create Kafka event feed: %v", err)
		}
		if err := kafkaBus.Start(ctx); err != nil {
			log.Fatalf("Failed to start Kafka event feed: %v", err)
		}
		bus = kafkaBus
	} else {
		log.Println("KAFKA_BROKERS not set; direct mode will see no job events")
		bus = events.NewInProcBus()
	}

	log.Println("Using direct transport")
	return transport.NewDirect(genClient, bus)
}

// initializeS3 returns an S3 client if configured via env, else nil.
// Optional: S3_REGION, S3_PROFILE, S3_USE_PATH_STYLE=true. Enable with S3_ASSETS=true.
func initializeS3(ctx context.Context, settings config.Settings) *media.S3 {
	if !strings.EqualFold(os.Getenv("S3_ASSETS"), "true") {
		return nil
	}
	client, err := media.NewS3(ctx, media.S3Config{
		Region:       settings.S3Region,
		Profile:      settings.S3Profile,
		UsePathStyle: settings.S3UsePathStyle,
	})
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v (stored references disabled)", err)
		return nil
	}
	return client
}

// writeMotionPrompt derives a batch prompt from the first pending segment's
// endpoint angles.
func writeMotionPrompt(ctx context.Context, project *types.Project, seg *types.Segment) string {
	byID := make(map[string]*types.Waypoint, len(project.Waypoints))
	for _, wp := range project.Waypoints {
		byID[wp.ID] = wp
	}

	enhancer := promptgen.NewDefaultEnhancer()
	motionPrompt, err := enhancer.MotionPrompt(ctx, byID[seg.FromWaypointID], byID[seg.ToWaypointID])
	if err != nil || motionPrompt == "" {
		return "smooth camera move between viewpoints, steady motion"
	}
	return motionPrompt
}
