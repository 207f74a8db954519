// Package network models the transit network document that tubeql imports:
// stations with explicit identifiers and lines listing the stations they
// call at, in order.
package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a network document.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// StationID is a station identifier. Documents may spell it as a string or
// an integer; it is always kept in its text form.
type StationID string

// UnmarshalJSON accepts a JSON string or number.
func (id *StationID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StationID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("station id must be a string or a number, got %s", b)
	}
	*id = StationID(n.String())
	return nil
}

// UnmarshalYAML accepts a YAML string or numeric scalar.
func (id *StationID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: station id must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!str", "!!int", "!!float":
		*id = StationID(node.Value)
		return nil
	default:
		return fmt.Errorf("line %d: station id must be a string or a number, got %s", node.Line, node.ShortTag())
	}
}

// Station is one entry of the document's stations collection.
type Station struct {
	ID   StationID `json:"id" yaml:"id" validate:"required"`
	Name string    `json:"name" yaml:"name" validate:"required"`
}

// Line is one entry of the document's lines collection. Stations lists the
// identifiers of the stations the line calls at.
type Line struct {
	Name     string      `json:"name" yaml:"name" validate:"required"`
	Stations []StationID `json:"stations" yaml:"stations" validate:"dive,required"`
}

// Document is a complete network.
type Document struct {
	Stations []Station `json:"stations" yaml:"stations" validate:"dive"`
	Lines    []Line    `json:"lines" yaml:"lines" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatFor picks the document format from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and decodes the document at path. The result is not validated.
func Load(path string) (*Document, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads a document in the given format.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	return &doc, nil
}

// Validate checks required fields and rejects duplicate station ids.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s is %s", fieldPath(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("invalid network document: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid network document: %w", err)
	}

	seen := make(map[StationID]int, len(d.Stations))
	for i, s := range d.Stations {
		if prev, ok := seen[s.ID]; ok {
			return fmt.Errorf("invalid network document: station id %q used by stations[%d] and stations[%d]", s.ID, prev, i)
		}
		seen[s.ID] = i
	}
	return nil
}

// Normalize rewrites station and line names to Unicode NFC.
func (d *Document) Normalize() {
	for i := range d.Stations {
		d.Stations[i].Name = norm.NFC.String(d.Stations[i].Name)
	}
	for i := range d.Lines {
		d.Lines[i].Name = norm.NFC.String(d.Lines[i].Name)
	}
}

// PassCount is the number of station calls across all lines.
func (d *Document) PassCount() int {
	n := 0
	for _, l := range d.Lines {
		n += len(l.Stations)
	}
	return n
}

// UnknownStations lists, sorted and without repeats, the ids referenced by
// lines that no station entry declares.
func (d *Document) UnknownStations() []StationID {
	known := make(map[StationID]struct{}, len(d.Stations))
	for _, s := range d.Stations {
		known[s.ID] = struct{}{}
	}

	missing := make(map[StationID]struct{})
	for _, l := range d.Lines {
		for _, id := range l.Stations {
			if _, ok := known[id]; !ok {
				missing[id] = struct{}{}
			}
		}
	}

	out := make([]StationID, 0, len(missing))
	for id := range missing {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fieldPath turns "Document.Lines[0].Name" into "lines[0].name".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Document.")
	return strings.ToLower(ns)
}
