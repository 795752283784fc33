package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "./data/pepper"
)

// SetPepperPath points the package at a pepper file and drops any cached
// value so the next hash reads it.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper = ""
}

// LoadPepper reads the pepper file, creating it with fresh random content if
// it does not exist yet. Call it at startup so a broken path fails loudly
// before the first login.
func LoadPepper() error {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	p, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		return err
	}
	pepper = p
	return nil
}

// GetPepper returns the cached pepper, loading it on first use.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper
	}

	p, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		// Hashing without the pepper would silently produce hashes that can
		// never verify once the file is back.
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}
	pepper = p
	return pepper
}

func loadOrGeneratePepper(file string) (string, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	b, err := os.ReadFile(file)
	switch {
	case err == nil:
		p := strings.TrimSpace(string(b))
		if p == "" {
			return "", errors.New("cryptox: pepper file is empty")
		}
		return p, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(raw)
	if err := os.WriteFile(file, []byte(p), 0600); err != nil {
		return "", err
	}
	return p, nil
}
