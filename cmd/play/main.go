package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"comic-server/internal/story"
	"comic-server/pkg/client"
	"comic-server/pkg/logger"
)

func main() {
	cfg, err := loadPlayConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "console", OutputPath: "stderr", Service: "comic-play"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := setupStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up player storage", zap.Error(err))
	}
	defer closeStorage()

	manager := client.NewSessionManager(client.NewHTTPClient(cfg.ServerURL, nil), storage, cfg.CreditsPage, log)
	defer manager.Wait()

	if err := play(ctx, manager, cfg.Character, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Game stopped", zap.Error(err))
		manager.Wait()
		os.Exit(1)
	}
}

func setupStorage(ctx context.Context, cfg *playConfig) (client.Storage, func(), error) {
	switch cfg.Storage {
	case storageRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid PLAY_REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return client.NewRedisStorage(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil
	case storageFile:
		fs, err := client.NewFileStorage(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return client.NewMemoryStorage(), func() {}, nil
	}
}

// play - цикл чтения ввода: показать страницу, прочитать выбор, перейти дальше.
func play(ctx context.Context, manager *client.SessionManager, character string, in io.Reader, out io.Writer) error {
	reader := bufio.NewScanner(in)

	if character != "" {
		if err := manager.SelectCharacter(ctx, character); err != nil {
			return err
		}
	}

	for {
		view, err := manager.Initialize(ctx)
		if errors.Is(err, client.ErrPlaythroughFinished) {
			renderCredits(out)
			fmt.Fprintln(out, "\nStart a new story.")
		}
		if errors.Is(err, client.ErrNoCharacter) || errors.Is(err, client.ErrPlaythroughFinished) {
			id, ok := promptCharacter(reader, out)
			if !ok {
				return nil
			}
			if err := manager.SelectCharacter(ctx, id); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			fmt.Fprintln(out, "Error loading story. Please try again.")
			return err
		}

		renderPage(out, view)

		choice, ok := promptChoice(reader, out, len(view.Choices))
		if !ok {
			return nil
		}
		destination, err := manager.Choose(ctx, choice)
		if err != nil {
			return err
		}
		if destination == client.CreditsDestination {
			renderCredits(out)
			return nil
		}
		fmt.Fprintf(out, "\n>>> %s\n", destination)
	}
}

func promptCharacter(reader *bufio.Scanner, out io.Writer) (string, bool) {
	fmt.Fprintln(out, "Choose your character:")
	for _, c := range story.Characters() {
		if !c.Selectable {
			continue
		}
		fmt.Fprintf(out, "  [%s] %s - %s\n", c.ID, c.DisplayName, c.Description)
	}
	for {
		fmt.Fprint(out, "> ")
		if !reader.Scan() {
			return "", false
		}
		id := strings.TrimSpace(reader.Text())
		if _, ok := story.LookupCharacter(id); ok {
			return id, true
		}
		fmt.Fprintln(out, "Unknown character, try again.")
	}
}

func promptChoice(reader *bufio.Scanner, out io.Writer, n int) (int, bool) {
	if n == 0 {
		n = 3
	}
	for {
		fmt.Fprintf(out, "Your choice (1-%d): ", n)
		if !reader.Scan() {
			return 0, false
		}
		choice, err := strconv.Atoi(strings.TrimSpace(reader.Text()))
		if err == nil && choice >= 1 && choice <= n {
			return choice, true
		}
		fmt.Fprintln(out, "Invalid choice.")
	}
}

func renderPage(out io.Writer, view *client.PageView) {
	fmt.Fprintf(out, "\n=== PAGE %d ===\n\n%s\n\n", view.PageNumber, view.StoryText)
	if view.ImageURL != nil {
		fmt.Fprintf(out, "[panel] %s\n\n", *view.ImageURL)
	}
	for i, c := range view.Choices {
		fmt.Fprintf(out, "  %d. %s\n", i+1, c)
	}
}

func renderCredits(out io.Writer) {
	fmt.Fprint(out, `
=== CREDITS ===
  Lead Developer:        PIXL_DRIFT
  AI Narrative & Design: SPUDNIK
  Concept & Story:       Digital Dreamers Team
  Art & Animation:       Replicate & Anthropic API
  Sound & Effects:       Retro Audio Studio
`)
}
