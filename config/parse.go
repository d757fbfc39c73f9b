// Package config loads workflow graph definitions and model stylesheets
// from YAML or JSON and builds the in-memory graph from them. Parsing is
// strict: unknown keys are errors, so typos surface at load time instead
// of silently configuring nothing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var validate = validator.New()

// ParseDefinitionFile loads a graph definition from a file. The file
// extension determines the format (JSON or YAML).
func ParseDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseDefinitionJSON(data)
	case ".yml", ".yaml":
		return ParseDefinitionYAML(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ParseDefinitionYAML loads a graph definition from YAML.
func ParseDefinitionYAML(data []byte) (*Definition, error) {
	var definition Definition
	if err := yaml.UnmarshalWithOptions(data, &definition, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := validate.Struct(&definition); err != nil {
		return nil, fmt.Errorf("invalid graph definition: %w", err)
	}
	return &definition, nil
}

// ParseDefinitionJSON loads a graph definition from JSON.
func ParseDefinitionJSON(data []byte) (*Definition, error) {
	var definition Definition
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, err
	}
	if err := validate.Struct(&definition); err != nil {
		return nil, fmt.Errorf("invalid graph definition: %w", err)
	}
	return &definition, nil
}

// ParseStylesheetFile loads a model stylesheet from a YAML file.
func ParseStylesheetFile(path string) (*Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStylesheetYAML(data)
}

// ParseStylesheetYAML loads a model stylesheet from YAML.
func ParseStylesheetYAML(data []byte) (*Stylesheet, error) {
	var stylesheet Stylesheet
	if err := yaml.UnmarshalWithOptions(data, &stylesheet, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := validate.Struct(&stylesheet); err != nil {
		return nil, fmt.Errorf("invalid stylesheet: %w", err)
	}
	if stylesheet.Default != "" {
		if _, ok := stylesheet.Classes[stylesheet.Default]; !ok {
			return nil, fmt.Errorf("invalid stylesheet: default class %q is not defined", stylesheet.Default)
		}
	}
	return &stylesheet, nil
}
