// Package docformat implements the C2 pipeline model & parser: decoding
// a rendered pipeline document, in any of YAML/JSON/TOML, into the
// version-agnostic aqmodel.Pipeline, grounded on the teacher's
// koanf-based multi-format config loader.
package docformat

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	koanf "github.com/knadh/koanf/v2"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// Format discriminates the three interchangeable document encodings.
type Format string

const (
	Yaml Format = "yaml"
	Json Format = "json"
	Toml Format = "toml"
)

// FormatFromExtension infers a Format from a file extension, the way
// the original templating loader does for on-disk documents.
func FormatFromExtension(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return Yaml, nil
	case strings.HasSuffix(path, ".json"):
		return Json, nil
	case strings.HasSuffix(path, ".toml"):
		return Toml, nil
	default:
		return "", aqerr.NewConfigError("unknown_format", fmt.Sprintf("cannot infer pipeline document format from path %q", path), nil)
	}
}

// rawPipeline is the intermediate, version-agnostic tree every format
// decodes into before tagged-union dispatch. Sources/Stages/Destination
// stay as generic maps and are converted by hand into the aqmodel
// shape; only the current key spellings are read.
type rawPipeline struct {
	Version     string           `koanf:"version"`
	Sources     []map[string]any `koanf:"sources"`
	Stages      [][]map[string]any `koanf:"stages"`
	Destination map[string]any  `koanf:"destination"`
}

// Parse decodes text (already template-rendered) in the given format
// into a validated Pipeline. Any one of the three formats must produce
// an identical in-memory pipeline for equivalent input.
func Parse(format Format, text string) (aqmodel.Pipeline, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	switch format {
	case Yaml:
		parser = yaml.Parser()
	case Json:
		parser = json.Parser()
	case Toml:
		parser = toml.Parser()
	default:
		return aqmodel.Pipeline{}, aqerr.NewConfigError("unknown_format", fmt.Sprintf("unsupported pipeline document format %q", format), nil)
	}

	if err := k.Load(rawbytes.Provider([]byte(text)), parser); err != nil {
		return aqmodel.Pipeline{}, aqerr.NewConfigError("parse_error", fmt.Sprintf("parsing %s pipeline document", format), err)
	}

	var raw rawPipeline
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return aqmodel.Pipeline{}, aqerr.NewConfigError("parse_error", "decoding pipeline document structure", err)
	}

	pipeline, err := convertRaw(raw)
	if err != nil {
		return aqmodel.Pipeline{}, err
	}

	if err := pipeline.Validate(); err != nil {
		return aqmodel.Pipeline{}, err
	}

	return pipeline, nil
}

func convertRaw(raw rawPipeline) (aqmodel.Pipeline, error) {
	version := raw.Version
	if version == "" {
		version = aqmodel.CurrentVersion
	}

	sources := make([]aqmodel.Source, 0, len(raw.Sources))
	for _, s := range raw.Sources {
		src, err := convertSource(s)
		if err != nil {
			return aqmodel.Pipeline{}, err
		}
		sources = append(sources, src)
	}

	stages := make([][]aqmodel.Stage, 0, len(raw.Stages))
	for _, level := range raw.Stages {
		stageLevel := make([]aqmodel.Stage, 0, len(level))
		for _, s := range level {
			st, err := convertStage(s)
			if err != nil {
				return aqmodel.Pipeline{}, err
			}
			stageLevel = append(stageLevel, st)
		}
		stages = append(stages, stageLevel)
	}

	var destination *aqmodel.Destination
	if len(raw.Destination) > 0 {
		d, err := convertDestination(raw.Destination)
		if err != nil {
			return aqmodel.Pipeline{}, err
		}
		destination = &d
	}

	return aqmodel.Pipeline{
		Version:     version,
		Sources:     sources,
		Stages:      stages,
		Destination: destination,
	}, nil
}
