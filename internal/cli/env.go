package cli

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that point at an explicit .env file. The first one
// that loads wins over the --env flag.
var envFileOverrides = []string{"GLOSSA_ENV_FILE", "HORSE_ENV_FILE"}

// EnvLoader resolves which .env file a subcommand should load.
type EnvLoader struct {
	path        *string
	defaultPath string
}

// AddEnvFlag registers an --env flag on fs and returns the loader bound to it.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		path:        fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Load applies the first .env file that resolves, in override order: the
// override environment variables, the --env value, its basename, then the
// default path. It returns the path that loaded.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	for _, name := range envFileOverrides {
		custom := strings.TrimSpace(os.Getenv(name))
		if custom == "" {
			continue
		}
		if err := godotenv.Overload(custom); err != nil {
			log.Printf("Warning: failed to load %s=%s", name, custom)
			continue
		}
		log.Printf("Loaded environment from %s: %s", name, custom)
		return custom, nil
	}

	requested := l.defaultPath
	if l.path != nil && strings.TrimSpace(*l.path) != "" {
		requested = strings.TrimSpace(*l.path)
	}

	for _, candidate := range envCandidates(requested, l.defaultPath) {
		if err := godotenv.Overload(candidate); err != nil {
			continue
		}
		log.Printf("Loaded environment from: %s", candidate)
		return candidate, nil
	}

	return "", fmt.Errorf("failed to load env file from %s", requested)
}

// envCandidates orders the paths to try: the requested file, its basename in
// the working directory, then the default.
func envCandidates(requested, defaultPath string) []string {
	candidates := []string{requested}
	if base := filepath.Base(requested); base != "" && base != requested {
		candidates = append(candidates, base)
	}
	if requested != defaultPath {
		candidates = append(candidates, defaultPath)
	}
	return candidates
}
