package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/cli"
	"horse.fit/glossa/internal/completion"
	"horse.fit/glossa/internal/config"
	"horse.fit/glossa/internal/db"
	"horse.fit/glossa/internal/langdetect"
	"horse.fit/glossa/internal/logging"
	"horse.fit/glossa/internal/messages"
	"horse.fit/glossa/internal/reader"
	"horse.fit/glossa/internal/settings"
	"horse.fit/glossa/internal/trace"
	"horse.fit/glossa/internal/translate"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	lang := fs.String("lang", "", "Target language (ISO 639-1, for example: en, zh)")
	text := fs.String("text", "", "Selection text to translate")
	pageURL := fs.String("url", "", "Page URL to extract and translate")
	noSave := fs.Bool("no-save", false, "Skip persisting --lang as the durable preference")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "translate does not accept positional args")
		printTranslateUsage()
		return 2
	}

	selectionText := strings.TrimSpace(*text)
	selectionURL := strings.TrimSpace(*pageURL)
	if (selectionText == "") == (selectionURL == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --text or --url is required")
		printTranslateUsage()
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Logs go to stderr; stdout carries the streamed translation.
	logger, err := logging.NewWithWriter(os.Stderr, cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	selection := selectionText
	if selectionURL != "" {
		selection, err = reader.FetchSelection(ctx, selectionURL, reader.FetchOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to extract text from %s: %v\n", selectionURL, err)
			return 1
		}
	}
	if strings.TrimSpace(selection) == "" {
		fmt.Fprintln(os.Stderr, "Selection text is empty")
		return 1
	}

	cat := catalog.New()
	cat.Load()

	targetCode := ""
	if raw := strings.TrimSpace(*lang); raw != "" {
		target := cat.Resolve(raw)
		if target.IsUnknown() {
			fmt.Fprintf(os.Stderr, "Unsupported target language: %s\n", raw)
			return 2
		}
		targetCode = target.Code
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	msgStore := messages.NewStore(pool, logger)
	defer msgStore.Close()
	prefsStore := settings.NewStore(pool)
	tracer := trace.NewService(logger)

	engine := completion.NewService(completion.Options{
		Endpoint: cfg.TranslateEndpoint,
		Model:    cfg.TranslateModel,
		APIKey:   cfg.TranslateAPIKey,
	}, msgStore, tracer, logger)
	defer engine.Close()

	var prefs translate.PreferenceStore = prefsStore
	if targetCode != "" {
		prefs = pinnedPreferences{base: prefsStore, code: targetCode}
		if !*noSave {
			if err := prefsStore.Put(ctx, settings.TargetLanguageKey, targetCode); err != nil {
				logger.Warn().Err(err).Str("language", targetCode).Msg("Failed to persist target language")
			}
		}
	}

	uiLanguage := targetCode
	if uiLanguage == "" {
		uiLanguage = cfg.UILanguage
	}

	ctrl := translate.New(translate.Options{
		Selection:  selection,
		SourceLang: langdetect.DetectOrUnd(selection),
		UILanguage: uiLanguage,
		OnStreamStart: func() {
			fmt.Fprintln(os.Stderr, "Streaming translation...")
		},
	}, translate.Deps{
		Catalog:     cat,
		Preferences: prefs,
		Engine:      engine,
		Feed:        msgStore,
		Tracer:      tracer,
		Logger:      logger,
	})
	defer ctrl.Close()

	updates, cancelUpdates := ctrl.Subscribe()
	defer cancelUpdates()

	ctrl.Start(ctx)

	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	topicID, ok := waitInitialized(initCtx, ctrl, updates)
	initCancel()
	if !ok {
		fmt.Fprintln(os.Stderr, "Translation session failed to initialize")
		return 1
	}
	defer tracer.EndTopic(topicID, nil)

	feed, cancelFeed := msgStore.Subscribe(topicID)
	defer cancelFeed()

	return streamToStdout(ctx, ctrl, updates, feed)
}

// pinnedPreferences fixes the target language for one run while leaving
// writes to the durable store.
type pinnedPreferences struct {
	base *settings.Store
	code string
}

func (p pinnedPreferences) Get(ctx context.Context, key string) (string, bool, error) {
	if key == settings.TargetLanguageKey {
		return p.code, true, nil
	}
	return p.base.Get(ctx, key)
}

func (p pinnedPreferences) Put(ctx context.Context, key, value string) error {
	return p.base.Put(ctx, key, value)
}

func waitInitialized(ctx context.Context, ctrl *translate.Controller, updates <-chan translate.Snapshot) (string, bool) {
	if snap := ctrl.Snapshot(); snap.Initialized {
		return ctrl.TopicID(), true
	}
	for {
		select {
		case <-ctx.Done():
			return "", false
		case snap, ok := <-updates:
			if !ok {
				return "", false
			}
			if snap.Initialized {
				return ctrl.TopicID(), true
			}
		}
	}
}

// streamToStdout prints assistant content deltas as they land in the message
// store and exits once the controller reaches a terminal state. Subscriptions
// drop snapshots under load, so the terminal check polls the controller on
// every wake-up instead of trusting the channel.
func streamToStdout(ctx context.Context, ctrl *translate.Controller, updates <-chan translate.Snapshot, feed <-chan []assistant.Message) int {
	printed := 0
	flush := func(content string) {
		if len(content) > printed {
			fmt.Print(content[printed:])
			printed = len(content)
		}
	}

	for {
		snap := ctrl.Snapshot()
		if snap.Status == translate.StatusFinished {
			if snap.ErrorText != "" {
				if printed > 0 {
					fmt.Println()
				}
				fmt.Fprintf(os.Stderr, "Translation failed: %s\n", snap.ErrorText)
				return 1
			}
			flush(snap.Content)
			if printed > 0 {
				fmt.Println()
			}
			return 0
		}

		select {
		case <-ctx.Done():
			if printed > 0 {
				fmt.Println()
			}
			fmt.Fprintf(os.Stderr, "Translation aborted: %v\n", ctx.Err())
			return 1
		case items, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			if last, found := assistant.LastAssistantMessage(items); found {
				flush(last.Content)
			}
		case _, ok := <-updates:
			if !ok {
				updates = nil
			}
		}
	}
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  glossa translate --text <selection> [--lang de] [--no-save] [--env .env] [--timeout 2m]")
	fmt.Fprintln(os.Stderr, "  glossa translate --url <page> [--lang de] [--no-save] [--env .env] [--timeout 2m]")
}
