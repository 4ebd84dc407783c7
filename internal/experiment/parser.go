package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/handiism/stimulus/internal/experiment/dto"
	"github.com/handiism/stimulus/internal/model"
)

// Format is the encoding of an experiment file.
type Format int

const (
	// FormatJSON reads and writes .json files.
	FormatJSON Format = iota

	// FormatYAML reads and writes .yaml and .yml files.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as YAML, which also accepts JSON documents.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Parser converts experiment files to model.Experiment values and back.
//
// Example usage:
//
//	parser := NewParser()
//
//	data, _ := os.ReadFile("faces.yaml")
//	exp, err := parser.Parse(data, FormatYAML, "/stimuli")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%s: %d groups\n", exp.Name, len(exp.Config.Groups))
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes an experiment file. baseDir is recorded on the result and
// used to resolve relative image paths.
//
// Parse only checks that the document is well formed and that the policy
// labels are known. Use Validate for the content checks.
func (p *Parser) Parse(data []byte, format Format, baseDir string) (*model.Experiment, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("experiment file is empty")
	}

	var raw dto.Experiment
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse experiment JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse experiment YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown experiment format %v", format)
	}

	exp, err := raw.ToExperiment(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid experiment file: %w", err)
	}
	return exp, nil
}

// Marshal encodes exp in the given format.
func (p *Parser) Marshal(exp *model.Experiment, format Format) ([]byte, error) {
	raw := dto.FromExperiment(exp)
	switch format {
	case FormatJSON:
		return json.MarshalIndent(raw, "", "  ")
	case FormatYAML:
		return yaml.Marshal(raw)
	default:
		return nil, fmt.Errorf("unknown experiment format %v", format)
	}
}
