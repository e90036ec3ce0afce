package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/gathernomics/internal/core"
)

// LoadTables reads the table list from the document at path.
//
// The document is JSON or YAML with a top-level "tables" list. A missing file,
// a document that does not parse, a missing "tables" key or a non-list value
// all yield an empty list. Entries that do not form a valid descriptor are
// logged and dropped; the rest are returned in file order.
func LoadTables(path string) ([]core.TableDescriptor, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tables config: %w", err)
	}

	slog.Debug("loading config file", "path", path)
	return ParseTables(data, path), nil
}

// ParseTables decodes a tables document. source names the document in logs.
// Documents that look like JSON are decoded as JSON; everything else as YAML.
func ParseTables(data []byte, source string) []core.TableDescriptor {
	doc, err := decodeDocument(data, source)
	if err != nil {
		slog.Warn("config file is not a json or yaml document", "path", source, "error", err)
		return nil
	}

	raw, ok := doc["tables"]
	if !ok {
		slog.Debug("config file has no tables", "path", source)
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		slog.Warn("tables section of config is not a list", "path", source)
		return nil
	}

	tables := make([]core.TableDescriptor, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			slog.Warn("table entry is not an object", "path", source, "index", i)
			continue
		}
		desc, err := core.DescriptorFromMap(fields)
		if err != nil {
			slog.Warn("skipping table entry", "path", source, "index", i, "error", err)
			continue
		}
		slog.Debug("loaded table", "table", desc.Name, "enabled", desc.Enabled)
		tables = append(tables, desc)
	}
	return tables
}

func decodeDocument(data []byte, source string) (map[string]any, error) {
	var doc map[string]any
	if looksLikeJSON(data) {
		err := json.Unmarshal(data, &doc)
		if err == nil || strings.EqualFold(filepath.Ext(source), ".json") {
			return doc, err
		}
		// Flow-style YAML also opens with a brace.
		doc = nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// looksLikeJSON reports whether data opens a JSON object or array. YAML
// rejects some valid JSON escapes such as \/ so those go to encoding/json.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
