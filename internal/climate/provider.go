package climate

import (
	"fmt"
	"os"
	"path/filepath"
)

// Key identifies one WorldClim country tile.
type Key struct {
	Region     string // ISO-3 country code, e.g. "BEN"
	Class      string // variable class, e.g. "bio" or "elev"
	Resolution string // e.g. "30s" or "2.5m"
}

func (k Key) FileName() string {
	return fmt.Sprintf("%s_wc2.1_%s_%s.tif", k.Region, k.Resolution, k.Class)
}

// Provider yields a local path for a climate tile.
type Provider interface {
	Acquire(key Key) (string, error)
}

// LocalStore resolves tiles already present on disk.
type LocalStore struct {
	Dir string
}

func (s *LocalStore) Path(key Key) string {
	return filepath.Join(s.Dir, key.FileName())
}

func (s *LocalStore) Acquire(key Key) (string, error) {
	path := s.Path(key)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("climate tile %s not found in %s: %v", key.FileName(), s.Dir, err)
	}
	return path, nil
}

// CachingProvider downloads missing tiles into the store and serves
// everything else from disk.
type CachingProvider struct {
	Store   *LocalStore
	Fetcher *Fetcher
}

func (p *CachingProvider) Acquire(key Key) (string, error) {
	path := p.Store.Path(key)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Climate tile %s already cached, skipping download\n", key.FileName())
		return path, nil
	}
	if err := os.MkdirAll(p.Store.Dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create climate cache directory: %v", err)
	}
	if err := p.Fetcher.Fetch(key, path); err != nil {
		return "", err
	}
	return path, nil
}
