package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when it would overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

var keyComments = map[string]string{
	"bucket":              "Bucket location and limits",
	"bucket.path":         "Directory removed items are moved into",
	"bucket.history_path": "Where the history of removed items is kept",
	"bucket.max_size":     "Size cap, e.g. 500MiB or 2GiB",
	"bucket.retention":    "Days an item is kept before it is deleted for good",
	"history.backend":     "History storage: file (JSON document) or badger (database directory)",
	"logging.level":       "Log level: debug, info, warn, error",
	"logging.path":        "Log file path (empty means use default: $XDG_STATE_HOME/myrm/myrm.log)",
	"logging.rotation":    "Log rotation settings",
}

// DefaultYAML renders the default configuration as commented YAML.
func DefaultYAML() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(Default()); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	node.HeadComment = "myrm configuration"
	annotate(&node, "")

	data, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("rendering default config: %w", err)
	}
	return data, nil
}

// annotate attaches keyComments to the keys of a mapping node, recursively.
func annotate(node *yaml.Node, prefix string) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		if c, ok := keyComments[path]; ok {
			key.HeadComment = c
		}
		annotate(value, path)
	}
}

// WriteDefault writes the default configuration to path, or to ConfigPath()
// when path is empty, and returns the path written. An existing file is only
// replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	} else if !os.IsNotExist(err) {
		return path, fmt.Errorf("failed to check config file: %w", err)
	}

	data, err := DefaultYAML()
	if err != nil {
		return path, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, fmt.Errorf("failed to write default config: %w", err)
	}

	return path, nil
}
