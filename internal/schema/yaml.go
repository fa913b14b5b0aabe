package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// schemaFile is the on-disk YAML layout.
type schemaFile struct {
	Sheets []SheetDefinition `yaml:"sheets"`
}

// LoadFile reads sheet definitions from a YAML file and validates them.
func LoadFile(path string) ([]SheetDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()

	sheets, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return sheets, nil
}

// Load reads sheet definitions from YAML and validates them.
func Load(r io.Reader) ([]SheetDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	if err := Validate(file.Sheets); err != nil {
		return nil, err
	}
	return file.Sheets, nil
}
