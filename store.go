package ledgerline

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// A Store persists books by name. The reference implementation keeps one
// JSONL file per book under a directory tree; the interface exists so tests
// and alternative backends can swap it out.
type Store interface {
	Find(query string) (*Book, error)
	FindAll(query string) ([]*Book, error)
	Save(b *Book) error
}

// DirStore keeps each book as <root>/<name>.jsonl. A book's name may contain
// slashes, so "john/schwab" lives in a subdirectory.
type DirStore struct {
	Root string
	// Lookup resolves institution IDs found in book headers; nil means the
	// built-in profiles.
	Lookup func(id string) Institution
}

// Find returns the unique book matching the query. An empty query over an
// empty store yields a fresh default book rather than an error, so the first
// import needs no setup step.
func (s *DirStore) Find(query string) (*Book, error) {
	paths, err := s.paths(query)
	if err != nil {
		return nil, err
	}
	switch len(paths) {
	case 0:
		if query == "" {
			return NewBook("ledger", "USD", LookupInstitution("")), nil
		}
		return nil, fmt.Errorf("could not find book %q", query)
	case 1:
		return s.load(paths[0])
	default:
		return nil, fmt.Errorf("multiple books found for %q", query)
	}
}

// FindAll loads every book matching the query; an empty query matches all.
func (s *DirStore) FindAll(query string) ([]*Book, error) {
	paths, err := s.paths(query)
	if err != nil {
		return nil, err
	}
	var books []*Book
	for _, p := range paths {
		b, err := s.load(p)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// Save writes the book to its file, creating parent directories as needed.
func (s *DirStore) Save(b *Book) error {
	if b.Name() == "" {
		return fmt.Errorf("cannot save a book with an empty name")
	}
	path := filepath.Join(s.Root, b.Name()+".jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for book %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not open book file %q for writing: %w", path, err)
	}
	defer f.Close()
	return EncodeBook(f, b)
}

// AppendAudit appends events to the book's audit trail, kept next to the
// book file as <name>.audit.jsonl. The trail is append-only: it is never
// rewritten by Save or fmt.
func (s *DirStore) AppendAudit(b *Book, events []AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	path := filepath.Join(s.Root, b.Name()+".audit.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for audit trail %q: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("could not open audit trail %q: %w", path, err)
	}
	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			f.Close()
			return fmt.Errorf("could not append to audit trail %q: %w", path, err)
		}
	}
	return f.Close()
}

func (s *DirStore) load(fullPath string) (*Book, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("could not open book file %q: %w", fullPath, err)
	}
	defer f.Close()

	b, err := DecodeBook(f, s.Lookup)
	if err != nil {
		return nil, fmt.Errorf("could not decode book file %q: %w", fullPath, err)
	}
	return b, nil
}

// paths scans the store root for .jsonl files whose book name matches the
// query; an empty query matches everything.
func (s *DirStore) paths(query string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == s.Root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".jsonl") || strings.HasSuffix(p, ".audit.jsonl") {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".jsonl")
		if query == "" || name == query {
			paths = append(paths, p)
		}
		return nil
	})
	return paths, err
}
