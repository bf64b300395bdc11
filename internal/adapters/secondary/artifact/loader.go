// Package artifact reads serialized model artifacts from disk.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"price-prediction-service/internal/core/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown model artifact format")

// document is the on-disk layout of a model artifact.
type document struct {
	FormatVersion int                    `json:"format_version" yaml:"format_version"`
	Name          string                 `json:"name" yaml:"name"`
	Version       string                 `json:"version" yaml:"version"`
	Kind          string                 `json:"kind" yaml:"kind"`
	Features      []string               `json:"features" yaml:"features"`
	Intercept     float64                `json:"intercept" yaml:"intercept"`
	Coefficients  []float64              `json:"coefficients" yaml:"coefficients"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and validates the artifact at path.
func Load(path string) (*domain.Model, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	model, err := Decode(data, format, defaultName(path))
	if err != nil {
		return nil, fmt.Errorf("load model artifact %s: %w", path, err)
	}

	log.WithFields(log.Fields{
		"path":     path,
		"model":    model.Name(),
		"version":  model.Version(),
		"kind":     model.Kind(),
		"features": model.NumFeatures(),
	}).Info("model artifact loaded")

	return model, nil
}

// Decode parses an artifact body. Unknown top-level keys are rejected.
// fallbackName names the model when the artifact does not.
func Decode(data []byte, format Format, fallbackName string) (*domain.Model, error) {
	var doc document

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	name := doc.Name
	if name == "" {
		name = fallbackName
	}

	return domain.NewModel(domain.ModelSpec{
		FormatVersion: doc.FormatVersion,
		Name:          name,
		Version:       doc.Version,
		Kind:          domain.ModelKind(doc.Kind),
		Features:      doc.Features,
		Intercept:     doc.Intercept,
		Coefficients:  doc.Coefficients,
		Metadata:      doc.Metadata,
	})
}

func defaultName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
