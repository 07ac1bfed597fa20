package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// fallbackFile lazily loads a dotenv-style file of secret values. Keys may be
// full secret:// references (optionally with a version query) or the legacy
// sm:// prefix.
type fallbackFile struct {
	path   string
	logger *zap.Logger

	once   sync.Once
	values map[string]string
	err    error
}

func (f *fallbackFile) lookup(ref secretRef, version string) (string, bool) {
	f.load()

	if f.err != nil {
		if f.logger != nil {
			f.logger.Debug("secrets: fallback load error", zap.Error(f.err))
		}
		return "", false
	}

	if val, ok := f.values[cacheKey(ref.Canonical, version)]; ok {
		return val, true
	}
	if val, ok := f.values[ref.Canonical]; ok {
		return val, true
	}
	return "", false
}

func (f *fallbackFile) load() {
	f.once.Do(func() {
		f.values = map[string]string{}

		path := strings.TrimSpace(f.path)
		if path == "" {
			return
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}

		file, err := os.Open(absPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				f.err = fmt.Errorf("secrets: unable to open fallback file %s: %w", absPath, err)
			}
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			key = normalizeFallbackKey(key)
			value = strings.TrimSpace(value)
			if key == "" {
				continue
			}
			if parsed, err := parseSecretRef(key); err == nil {
				version := parsed.Version
				if version == "" {
					version = "latest"
				}
				f.values[parsed.Canonical] = value
				f.values[cacheKey(parsed.Canonical, version)] = value
			} else {
				f.values[key] = value
			}
		}
		if err := scanner.Err(); err != nil {
			f.err = fmt.Errorf("secrets: failed reading %s: %w", absPath, err)
		}
	})
}

func normalizeFallbackKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "sm://") {
		return "secret://" + strings.TrimPrefix(key, "sm://")
	}
	return key
}
