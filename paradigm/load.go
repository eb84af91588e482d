package paradigm

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/calvinmclean/uromri"
	"gopkg.in/yaml.v3"
)

// File is the YAML paradigm file. Either Phases lists the timeline, or Timings adjusts the default paradigm
type File struct {
	Timings *Timings `yaml:"timings,omitempty"`
	Phases  Timeline `yaml:"phases,omitempty"`
}

// LoadFile reads a timeline from a .yaml/.yml or .csv file
func LoadFile(path string) (Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening paradigm: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported paradigm file type %q", filepath.Ext(path))
	}
}

// LoadYAML reads a File. Unknown fields are rejected
func LoadYAML(r io.Reader) (Timeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	err := dec.Decode(&f)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding paradigm: %w", err)
	}

	switch {
	case len(f.Phases) > 0 && f.Timings != nil:
		return nil, errors.New("paradigm file must set either phases or timings, not both")
	case len(f.Phases) > 0:
		return f.Phases, f.Phases.Validate()
	case f.Timings != nil:
		tl := Default(*f.Timings)
		return tl, tl.Validate()
	default:
		return nil, errors.New("paradigm file has no phases")
	}
}

// LoadCSV reads rows of "group, kind, duration, text[, rate]". A literal \n in the text is a line break
func LoadCSV(r io.Reader) (Timeline, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var tl Timeline
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading paradigm: %w", err)
		}

		line, _ := reader.FieldPos(0)
		p, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tl = append(tl, p)
	}

	return tl, tl.Validate()
}

func parseRecord(record []string) (Phase, error) {
	if len(record) != 4 && len(record) != 5 {
		return Phase{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	kind, err := uromri.ParseKind(record[1])
	if err != nil {
		return Phase{}, err
	}

	duration, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return Phase{}, fmt.Errorf("invalid duration %q: %w", record[2], err)
	}

	p := Phase{
		Group:    record[0],
		Kind:     kind,
		Duration: duration,
		Text:     strings.ReplaceAll(record[3], `\n`, "\n"),
	}

	if len(record) == 5 {
		p.Rate, err = strconv.ParseFloat(record[4], 64)
		if err != nil {
			return Phase{}, fmt.Errorf("invalid rate %q: %w", record[4], err)
		}
	}

	return p, nil
}
