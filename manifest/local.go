package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes per-channel manifest files in an operator-managed
// directory. It is the bootstrap/fallback source: the operator drops one
// manifest_<Channel>.json per channel and the resolver picks them up.
type Store struct {
	dir string
}

// NewStore creates a Store over dir. The directory is not required to
// exist yet; a missing directory is simply a source failure at read time.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Name implements Source.
func (s *Store) Name() string { return "local" }

// Dir returns the managed directory.
func (s *Store) Dir() string { return s.dir }

// Load implements Source. A missing file is ErrSourceUnavailable, a parse
// failure ErrMalformedManifest; the resolver treats both identically.
func (s *Store) Load(_ context.Context, ch Channel) (*Record, error) {
	path := filepath.Join(s.dir, ch.FileName())
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.SourceName = s.Name()
	return rec, nil
}

// Save writes a channel manifest atomically (temp file + rename), so a
// concurrent Load never observes a partial file.
func (s *Store) Save(ch Channel, rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(s.dir, ch.FileName())
	tmp, err := os.CreateTemp(s.dir, ch.FileName()+".tmp*")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
