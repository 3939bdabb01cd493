package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

const includeKey = "$include"

// LoadRaw reads a configuration file into a merged raw map. Files named by
// $include are loaded first, relative to the including file, and the
// including file's own keys win.
func LoadRaw(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}
	return loadRawFile(path, map[string]bool{})
}

func loadRawFile(path string, visiting map[string]bool) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if visiting[absPath] {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	visiting[absPath] = true
	defer delete(visiting, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw, err := parseRaw([]byte(expandEnv(string(data))), absPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(absPath), err)
	}

	includes, err := takeIncludes(raw)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(absPath), inc)
		}
		incRaw, err := loadRawFile(inc, visiting)
		if err != nil {
			return nil, err
		}
		merged = mergeMaps(merged, incRaw)
	}
	return mergeMaps(merged, raw), nil
}

// expandEnv replaces ${VAR} and $VAR, and supports ${VAR:-fallback}.
func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		if key == "include" {
			// Keeps a bare "$include" key intact.
			return "$include"
		}
		return ""
	})
}

func parseRaw(data []byte, pathHint string) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(pathHint)) {
	case ".json", ".json5":
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		normalizeNumbers(raw)
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, errors.New("expected a single YAML document")
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// normalizeNumbers turns whole JSON numbers into int64 so they survive the
// YAML round trip into integer fields.
func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for k, v := range typed {
			typed[k] = normalizeNumbers(v)
		}
	case []any:
		for i, v := range typed {
			typed[i] = normalizeNumbers(v)
		}
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return int64(typed)
		}
	}
	return value
}

func takeIncludes(raw map[string]any) ([]string, error) {
	value, ok := raw[includeKey]
	if !ok {
		return nil, nil
	}
	delete(raw, includeKey)

	var paths []string
	switch typed := value.(type) {
	case nil:
	case string:
		paths = []string{typed}
	case []any:
		for _, entry := range typed {
			path, ok := entry.(string)
			if !ok {
				return nil, errors.New("$include entries must be strings")
			}
			paths = append(paths, path)
		}
	default:
		return nil, errors.New("$include must be a string or list of strings")
	}

	out := paths[:0]
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

// decodeRawConfig round-trips raw through YAML so unknown fields are rejected.
func decodeRawConfig(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
