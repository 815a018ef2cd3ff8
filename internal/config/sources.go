package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source types understood by the source adapter factory.
const (
	SourceTypeExcel = "excel"
	SourceTypeJSON  = "json"
)

// Source configures one raw input. ID is the key under which the source is
// declared in the sources file.
type Source struct {
	ID                  string `yaml:"-"`
	Type                string `yaml:"type" validate:"required,oneof=excel json"`
	SourceName          string `yaml:"source_name" validate:"required"`
	FilePath            string `yaml:"file_path" validate:"required_without=URL"`
	URL                 string `yaml:"url" validate:"omitempty,url"`
	SkipEmptyRows       *bool  `yaml:"skip_empty_rows"`
	SkipHeaderBlankRows *bool  `yaml:"skip_header_blank_rows"`

	// Station metadata, used by the excel source which carries a single station.
	StationID   string   `yaml:"station_id" validate:"required_if=Type excel"`
	StationName *string  `yaml:"station_name"`
	Latitude    *float64 `yaml:"latitude"`
	Longitude   *float64 `yaml:"longitude"`
	Elevation   *int     `yaml:"elevation"`
	City        *string  `yaml:"city"`
	State       *string  `yaml:"state"`
	Hardware    *string  `yaml:"hardware"`
	Software    *string  `yaml:"software"`
}

// Input returns the location to read from. A file_path holding an http(s)
// URL is treated as a URL.
func (s Source) Input() string {
	if s.FilePath != "" {
		return s.FilePath
	}
	return s.URL
}

// IsRemote reports whether Input must be fetched before reading.
func (s Source) IsRemote() bool {
	in := s.Input()
	return strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://")
}

// FilterEmptyRows reports whether rows without core measurements are dropped.
// Defaults to true.
func (s Source) FilterEmptyRows() bool {
	return s.SkipEmptyRows == nil || *s.SkipEmptyRows
}

// DropBlankRows reports whether fully blank spreadsheet rows are dropped.
// Defaults to true.
func (s Source) DropBlankRows() bool {
	return s.SkipHeaderBlankRows == nil || *s.SkipHeaderBlankRows
}

// MetadataField is one entry of the output_metadata table.
type MetadataField struct {
	Name        string
	Description string
}

// Sources is the parsed sources file. Both lists keep declaration order.
type Sources struct {
	Sources        []Source
	OutputMetadata []MetadataField
}

type sourcesFile struct {
	Sources        yaml.Node `yaml:"sources"`
	OutputMetadata yaml.Node `yaml:"output_metadata"`
}

var validate = validator.New()

// LoadSources reads and validates a sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a sources document and validates every source.
func ParseSources(data []byte) (*Sources, error) {
	var raw sourcesFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	out := &Sources{}

	if err := eachPair(&raw.Sources, "sources", func(key string, value *yaml.Node) error {
		var src Source
		if err := value.Decode(&src); err != nil {
			return fmt.Errorf("decode source %q: %w", key, err)
		}
		src.ID = key
		if err := validate.Struct(src); err != nil {
			return fmt.Errorf("validate source %q: %w", key, err)
		}
		out.Sources = append(out.Sources, src)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(out.Sources) == 0 {
		return nil, errors.New("sources file declares no sources")
	}

	if err := eachPair(&raw.OutputMetadata, "output_metadata", func(key string, value *yaml.Node) error {
		var desc string
		if err := value.Decode(&desc); err != nil {
			return fmt.Errorf("decode output_metadata %q: %w", key, err)
		}
		out.OutputMetadata = append(out.OutputMetadata, MetadataField{Name: key, Description: desc})
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// eachPair walks a mapping node in document order. A missing section is
// treated as empty.
func eachPair(node *yaml.Node, section string, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s must be a mapping", section)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
