package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tailscale/hujson"
)

var (
	errManifestRead    = errors.New("cannot read manifest file")
	errManifestInvalid = errors.New("invalid manifest")
)

// LoadManifest reads an app-shell manifest: a JSON array of URL strings.
// Comments and trailing commas are allowed.
func LoadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", errManifestRead, path, err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", errManifestInvalid, path, err)
	}
	return manifest, nil
}

// ParseManifest decodes a JSONC manifest, trimming entries and rejecting
// blanks. Order is preserved and duplicates are dropped.
func ParseManifest(data []byte) ([]string, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(standardized, &entries); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	manifest := make([]string, 0, len(entries))
	for i, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			return nil, fmt.Errorf("entry %d is empty", i)
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		manifest = append(manifest, e)
	}
	return manifest, nil
}
