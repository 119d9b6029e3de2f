// Package filestore persists per-user element records as YAML files
// below a configuration directory, one file per user and type:
//
//	<root>/<user>/user_<type>s.yaml
//
// Writes replace the whole file atomically and are serialized between
// processes with an advisory lock, so concurrent saves of the same user
// and type never interleave.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
)

// Store implements element.Persistence over a directory tree.
type Store struct {
	root string
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

var _ element.Persistence = (*Store)(nil)

// Root returns the configuration directory.
func (s *Store) Root() string { return s.root }

// Path returns the file holding user's records of typeName.
func (s *Store) Path(user, typeName string) string {
	return filepath.Join(s.root, user, "user_"+typeName+"s.yaml")
}

func validUser(user string) error {
	if user == "" || user == "." || user == ".." || strings.ContainsAny(user, `/\`) {
		return fmt.Errorf("%w: user id %q", element.ErrInvalid, user)
	}
	return nil
}

// ReadUserRecords implements element.Persistence.
func (s *Store) ReadUserRecords(_ context.Context, user, typeName string) (map[string]element.Record, error) {
	if err := validUser(user); err != nil {
		return nil, err
	}
	path := s.Path(user, typeName)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from validated user id
	if errors.Is(err, os.ErrNotExist) {
		return nil, element.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records map[string]element.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, &element.ConfigCorruptError{User: user, Type: typeName, Path: path, Err: err}
	}
	if records == nil {
		records = make(map[string]element.Record)
	}
	for name, rec := range records {
		if rec == nil {
			records[name] = element.Record{}
		}
	}
	return records, nil
}

// WriteUserRecords implements element.Persistence.
func (s *Store) WriteUserRecords(_ context.Context, user, typeName string, records map[string]element.Record) error {
	if err := validUser(user); err != nil {
		return err
	}
	if records == nil {
		records = map[string]element.Record{}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("marshaling %ss of %s: %w", typeName, user, err)
	}
	_ = encoder.Close()

	path := s.Path(user, typeName)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating user directory: %w", err)
	}

	unlock, err := lock(filepath.Join(dir, "."+filepath.Base(path)+".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeAtomic(dir, path, buf.Bytes()); err != nil {
		return err
	}
	log.Debug(log.CatStore, "Wrote user records", "path", path, "count", len(records))
	return nil
}

// ListKnownUsers returns the names of the user directories, sorted.
func (s *Store) ListKnownUsers(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			users = append(users, e.Name())
		}
	}
	return users, nil
}

// lock takes an exclusive advisory lock on path, blocking until it is free.
func lock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: lock file next to the records file
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

func writeAtomic(dir, path string, data []byte) error {
	temp, err := os.CreateTemp(dir, ".records.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
