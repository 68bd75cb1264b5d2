package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/natefinch/atomic"
)

const entryExt = ".json"

// DiskStorage keeps each generation in its own directory under root, one
// JSON file per entry. Files are replaced atomically, so a reader sees
// either the old or the new snapshot, never a torn one.
type DiskStorage struct {
	root string
}

// diskEntry is the on-disk layout of one entry.
type diskEntry struct {
	Identity model.RequestIdentity `json:"identity"`
	Snapshot *model.Snapshot       `json:"snapshot"`
}

// NewDiskStorage creates the root directory if needed.
func NewDiskStorage(root string) (*DiskStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStorage{root: filepath.Clean(root)}, nil
}

func (d *DiskStorage) storeDir(name string) string {
	return filepath.Join(d.root, url.PathEscape(name))
}

// Open returns the named store, creating its directory when absent.
func (d *DiskStorage) Open(_ context.Context, name string) (Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	dir := d.storeDir(name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open store %s: %w", name, err)
	}
	return &diskStore{name: name, dir: dir}, nil
}

// Has reports whether the named store exists.
func (d *DiskStorage) Has(_ context.Context, name string) (bool, error) {
	if ValidateStoreName(name) != nil {
		return false, nil
	}
	info, err := os.Stat(d.storeDir(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Keys lists store names in lexical order.
func (d *DiskStorage) Keys(_ context.Context) ([]string, error) {
	dirents, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	names := make([]string, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		name, err := url.PathUnescape(de.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the store directory.
func (d *DiskStorage) Delete(ctx context.Context, name string) (bool, error) {
	ok, err := d.Has(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := os.RemoveAll(d.storeDir(name)); err != nil {
		return false, fmt.Errorf("delete store %s: %w", name, err)
	}
	return true, nil
}

// Ping checks the root directory is still there.
func (d *DiskStorage) Ping(context.Context) error {
	_, err := os.Stat(d.root)
	return err
}

// Close is a no-op.
func (d *DiskStorage) Close(context.Context) error { return nil }

// Backend returns "disk".
func (d *DiskStorage) Backend() string { return "disk" }

type diskStore struct {
	name string
	dir  string
}

func (s *diskStore) Name() string { return s.name }

func (s *diskStore) entryPath(id model.RequestIdentity) string {
	sum := sha256.Sum256([]byte(id.Key()))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entryExt)
}

func (s *diskStore) Match(_ context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}

	var e diskEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return e.Snapshot, nil
}

func (s *diskStore) Put(_ context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	data, err := json.Marshal(diskEntry{Identity: id, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", id, err)
	}
	if err := atomic.WriteFile(s.entryPath(id), bytes.NewReader(data)); err != nil {
		if _, statErr := os.Stat(s.dir); errors.Is(statErr, fs.ErrNotExist) {
			return ErrStoreNotFound
		}
		return fmt.Errorf("write entry %s: %w", id, err)
	}
	return nil
}

func (s *diskStore) Keys(_ context.Context) ([]model.RequestIdentity, error) {
	dirents, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var ids []model.RequestIdentity
	for _, de := range dirents {
		if de.IsDir() || filepath.Ext(de.Name()) != entryExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, de.Name()))
		if err != nil {
			continue
		}
		var e diskEntry
		if json.Unmarshal(data, &e) != nil {
			continue
		}
		ids = append(ids, e.Identity)
	}
	sortIdentities(ids)
	return ids, nil
}

func (s *diskStore) Delete(_ context.Context, id model.RequestIdentity) (bool, error) {
	err := os.Remove(s.entryPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", id, err)
	}
	return true, nil
}
