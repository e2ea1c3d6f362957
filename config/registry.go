package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/paperless"
)

// FileRegistry persists config entries in a YAML configuration file.
//
// New entries are appended to the YAML document tree of the file, so ${VAR}
// references, comments and keys the loader does not know all survive. A
// missing file is created on the first AddEntry.
type FileRegistry struct {
	path string
	mu   sync.Mutex
}

// NewFileRegistry returns a registry backed by the file at path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// HasUniqueID reports whether an entry with the given token exists.
// Tokens in the file are compared after environment expansion; a token
// whose variable is unset is compared as written.
func (r *FileRegistry) HasUniqueID(uniqueID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := loadRaw(r.path)
	if err != nil {
		return false, err
	}
	for _, e := range cfg.Entries {
		token, err := expandEnvVars(e.APIToken)
		if err != nil {
			token = e.APIToken
		}
		if token == uniqueID {
			return true, nil
		}
	}
	return false, nil
}

// AddEntry appends entry to the file.
func (r *FileRegistry) AddEntry(entry paperless.ConfigEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	out, err := appendEntry(data, EntryConfig{
		EntryID:  entry.EntryID,
		Title:    entry.Title,
		Host:     entry.Data.Host,
		Port:     entry.Data.Port,
		SSL:      entry.Data.SSL,
		APIToken: entry.Data.APIToken,
		TodoTag:  entry.Data.TodoTag,
	})
	if err != nil {
		return fmt.Errorf("add entry %s: %w", entry.EntryID, err)
	}
	if err := writeAtomic(r.path, out); err != nil {
		return fmt.Errorf("add entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// appendEntry adds ec to the entries sequence of the YAML document in data,
// creating the document or the sequence when missing.
func appendEntry(data []byte, ec EntryConfig) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		doc.Kind = yaml.DocumentNode
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		*root = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("config root must be a mapping")
	}

	var entries *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "entries" {
			entries = root.Content[i+1]
			break
		}
	}
	switch {
	case entries == nil:
		entries = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "entries"}, entries)
	case entries.Kind == yaml.ScalarNode && entries.Tag == "!!null":
		*entries = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	case entries.Kind != yaml.SequenceNode:
		return nil, errors.New("entries must be a list")
	}
	// flow-style lists would squeeze the new mapping onto one line
	entries.Style &^= yaml.FlowStyle

	var item yaml.Node
	if err := item.Encode(ec); err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	entries.Content = append(entries.Content, &item)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Entries returns the persisted entries, expanded.
func (r *FileRegistry) Entries() ([]paperless.ConfigEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return nil, err
	}
	return ConfigEntries(cfg), nil
}
