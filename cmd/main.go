package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"trichoscope/config"
	telegram "trichoscope/internal/api"
	"trichoscope/internal/api/rest"
	"trichoscope/internal/container"
	"trichoscope/internal/domain/port"
	"trichoscope/internal/infrastructure/export"
	"trichoscope/internal/infrastructure/render"
	"trichoscope/internal/infrastructure/storage"
	"trichoscope/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Собираем адаптеры
	renderer, err := render.NewRenderer(render.DefaultPanelStyle())
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}

	deps := container.Dependencies{
		Users:       storage.NewMemoryUserRepository(),
		Sessions:    storage.NewMemorySessionRepository(),
		Decoder:     vision.NewImageDecoder(cfg.MaxImagePixels),
		Renderer:    renderer,
		BrushRadius: cfg.DefaultBrushRadius,
	}

	// Интерфейсы заполняются только настроенными адаптерами, чтобы nil оставался nil
	var detector port.AnnotationDetector
	if cfg.AIEnabled() {
		gemini, err := vision.NewGeminiDetector(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEndpoint, cfg.GeminiTimeout)
		if err != nil {
			log.Fatalf("Failed to create detector: %v", err)
		}
		detector = gemini
		log.Printf("AI pre-annotation enabled (model %s)", gemini.Model)
	} else {
		log.Println("GEMINI_API_KEY is not set, AI pre-annotation disabled")
	}
	deps.Detector = detector

	var sink port.ExportSink
	if cfg.ExportDir != "" {
		fileSink, err := export.NewFileSink(cfg.ExportDir)
		if err != nil {
			log.Fatalf("Failed to prepare export dir: %v", err)
		}
		sink = fileSink
		log.Printf("Exports are saved to %s", cfg.ExportDir)
	}
	deps.Sink = sink

	// Собираем сервисы приложения
	appContainer := container.New(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appContainer); err != nil {
		log.Fatalf("Service error: %v", err)
	}
	log.Println("Stopped")
}

// run запускает настроенные транспорты и ждёт их остановки
func run(ctx context.Context, cfg *config.Config, appContainer *container.Container) error {
	group, ctx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		server, err := rest.NewServer(rest.ServerConfig{
			Addr:          cfg.HTTPAddr,
			App:           appContainer,
			MaxImageBytes: cfg.MaxImageBytes,
		})
		if err != nil {
			return fmt.Errorf("create http server: %w", err)
		}
		group.Go(func() error {
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, cfg.MaxImageBytes)
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		log.Println("Bot is running...")
		group.Go(func() error {
			if err := bot.Run(ctx); err != nil {
				return fmt.Errorf("bot error: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}
