package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/cli"
	"horse.fit/glossa/internal/settings"
)

func runSettings(args []string) int {
	if len(args) == 0 {
		printSettingsUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printSettingsUsage()
		return 0
	case "get", "set", "list":
	default:
		fmt.Fprintf(os.Stderr, "unknown settings action: %s\n\n", args[0])
		printSettingsUsage()
		return 2
	}

	fs := flag.NewFlagSet("settings "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	wantArgs := 0
	switch action {
	case "get":
		wantArgs = 1
	case "set":
		wantArgs = 2
	}
	if fs.NArg() != wantArgs {
		fmt.Fprintf(os.Stderr, "settings %s requires %d argument(s)\n", action, wantArgs)
		printSettingsUsage()
		return 2
	}

	var key string
	if action != "list" {
		var known bool
		key, known = resolveSettingsKey(fs.Arg(0))
		if !known {
			fmt.Fprintf(os.Stderr, "Unsupported settings key: %s\n", fs.Arg(0))
			fmt.Fprintln(os.Stderr, "Supported keys: translate.target_language")
			return 2
		}
	}

	ctx, cancel, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	store := settings.NewStore(pool)

	switch action {
	case "list":
		items, err := store.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list settings: %v\n", err)
			return 1
		}
		for _, item := range items {
			fmt.Printf("%s=%s\n", item.Key, item.Value)
		}
		return 0
	case "get":
		value, found, err := store.Get(ctx, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read setting: %v\n", err)
			return 1
		}
		if !found {
			fmt.Fprintf(os.Stderr, "%s is not set\n", key)
			return 1
		}
		fmt.Println(value)
		return 0
	}

	value := strings.TrimSpace(fs.Arg(1))
	if key == settings.TargetLanguageKey {
		cat := catalog.New()
		cat.Load()
		lang := cat.Resolve(value)
		if lang.IsUnknown() {
			fmt.Fprintf(os.Stderr, "Unsupported target language: %s\n", fs.Arg(1))
			return 2
		}
		value = lang.Code
	}

	if err := store.Put(ctx, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write setting: %v\n", err)
		return 1
	}
	fmt.Printf("%s=%s\n", key, value)
	return 0
}

// resolveSettingsKey maps CLI key spellings onto store keys. The CLI accepts
// dots where the store uses colons.
func resolveSettingsKey(raw string) (string, bool) {
	key := strings.TrimSpace(strings.ToLower(raw))
	key = strings.ReplaceAll(key, ".", ":")
	switch key {
	case settings.TargetLanguageKey:
		return settings.TargetLanguageKey, true
	default:
		return "", false
	}
}

func printSettingsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  glossa settings list [--env .env] [--timeout 10s]")
	fmt.Fprintln(os.Stderr, "  glossa settings get translate.target_language [--env .env] [--timeout 10s]")
	fmt.Fprintln(os.Stderr, "  glossa settings set translate.target_language <code> [--env .env] [--timeout 10s]")
}
