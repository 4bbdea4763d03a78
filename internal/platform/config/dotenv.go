package config

import (
	"os"

	"github.com/joho/godotenv"

	"telewarehouse/internal/platform/logger"
)

// DefaultEnvFiles are tried in order by LoadDotenv when no files are given
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadDotenv loads the given env files when present and returns the ones loaded
// variables already set in the process environment win
func LoadDotenv(files ...string) []string {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	loaded := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logger.Get().Warn().Err(err).Str("file", f).Msg("config: failed to load env file")
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded
}
