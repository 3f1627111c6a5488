package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"bulkgen/internal/model"
	"bulkgen/internal/runstore"

	"github.com/oklog/ulid/v2"
)

const DefaultPath = "bulkgen.config.json"

// Document is the editable bulk configuration file. The run sidecar keeps
// its own frozen copy of Bulk, so editing this file never mutates a run
// already in flight.
type Document struct {
	SchemaVersion int              `json:"schema_version"`
	UpdatedAt     string           `json:"updated_at,omitempty"`
	Bulk          model.BulkConfig `json:"bulk"`
}

func Defaults() Document {
	return Document{
		SchemaVersion: 1,
		Bulk: model.BulkConfig{
			ModelID:              "deepai",
			AspectRatio:          "1:1",
			ImagesPerCombination: 1,
			OutputDir:            "output",
		},
	}
}

// Load reads the configuration document. A missing file yields defaults so
// first-run commands work without an init step.
func Load(path string) (Document, error) {
	var doc Document
	if err := runstore.ReadJSON(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Document{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = 1
	}
	applyDefaults(&doc.Bulk)
	return doc, nil
}

func Save(path string, doc Document) error {
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := runstore.WriteJSON(path, doc); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func applyDefaults(b *model.BulkConfig) {
	if strings.TrimSpace(b.ModelID) == "" {
		b.ModelID = "deepai"
	}
	if b.ImagesPerCombination <= 0 {
		b.ImagesPerCombination = 1
	}
	if strings.TrimSpace(b.OutputDir) == "" {
		b.OutputDir = "output"
	}
}

// Validate checks the fields a plan cannot proceed without.
func Validate(b model.BulkConfig) error {
	if strings.TrimSpace(b.CombinationsPath) == "" {
		return errors.New("combinations file not set (config set --combinations <path>)")
	}
	if strings.TrimSpace(b.OutputDir) == "" {
		return errors.New("output directory not set")
	}
	if b.ImagesPerCombination < 1 {
		return errors.New("images per combination must be >= 1")
	}
	for _, l := range b.Layers {
		if strings.TrimSpace(l.FilterText) == "" {
			return fmt.Errorf("layer %q has an empty filter", l.Name)
		}
	}
	return nil
}

var idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

// NewID mints a sortable unique id for sections, layers, and runs.
func NewID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String())
}

// FindSection returns the index of the section with the given id or name,
// or -1.
func FindSection(b model.BulkConfig, ref string) int {
	for i, s := range b.Sections {
		if s.ID == ref || strings.EqualFold(s.Name, ref) {
			return i
		}
	}
	return -1
}

// FindLayer returns the index of the layer with the given id or name, or
// -1.
func FindLayer(b model.BulkConfig, ref string) int {
	for i, l := range b.Layers {
		if l.ID == ref || strings.EqualFold(l.Name, ref) {
			return i
		}
	}
	return -1
}
