package adl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Snapshot is the serializable view of a Model. Every list is sorted by
// name, so two builds of the same document produce identical bytes.
type Snapshot struct {
	Core       string   `json:"core"`
	Arch       string   `json:"arch"`
	Attributes []string `json:"asm_attributes,omitempty"`
	Comments   []string `json:"asm_comments,omitempty"`

	Registers   []*Register   `json:"registers"`
	RegFields   []*RegField   `json:"reg_fields"`
	ImmFields   []*ImmField   `json:"imm_fields"`
	Relocations []*Relocation `json:"relocations"`

	ImmediateClasses []*ImmediateClass   `json:"immediate_classes"`
	RegisterClasses  []*RegisterClass    `json:"register_classes"`
	RegisterPairs    []*RegisterPair     `json:"register_pairs"`
	Aliases          map[string][]string `json:"aliases"`

	Instructions []*OperandModel `json:"instructions"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (m *Model) Snapshot() *Snapshot {
	s := &Snapshot{
		Core:             m.Name,
		Arch:             m.AsmConfig.Arch.String(),
		Attributes:       m.AsmConfig.Attributes,
		Comments:         m.AsmConfig.Comments,
		Registers:        m.SortedRegisters(),
		Relocations:      m.SortedRelocations(),
		ImmediateClasses: m.SortedImmediates(),
		RegisterClasses:  m.Classes.SortedClasses(),
		RegisterPairs:    m.Classes.SortedPairs(),
		Aliases:          m.Classes.Aliases,
		Instructions:     m.SortedInstructions(),
	}
	for _, name := range m.Fields.Names() {
		switch f := m.Fields.All[name].(type) {
		case *RegField:
			s.RegFields = append(s.RegFields, f)
		case *ImmField:
			s.ImmFields = append(s.ImmFields, f)
		}
	}
	for _, err := range m.Diagnostics.Errors {
		s.Errors = append(s.Errors, err.Error())
	}
	for _, w := range m.Diagnostics.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	return s
}

// MarshalSnapshot renders the model's snapshot as indented JSON.
func (m *Model) MarshalSnapshot() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// DiffSnapshots compares two JSON snapshots and returns a readable diff,
// or "" when they match.
func DiffSnapshots(a, b []byte) (string, error) {
	differ := gojsondiff.New()
	delta, err := differ.Compare(a, b)
	if err != nil {
		return "", fmt.Errorf("failed to compare snapshots: %w", err)
	}
	if !delta.Modified() {
		return "", nil
	}

	var left interface{}
	if err := json.Unmarshal(a, &left); err != nil {
		return "", fmt.Errorf("failed to decode snapshot: %w", err)
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       false,
	}
	return formatter.NewAsciiFormatter(left, cfg).Format(delta)
}

// WriteSnapshots writes one JSON file per output table of the model into
// dir, creating it if needed. The emitter consumes these files.
func WriteSnapshots(dir string, m *Model) error {
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return err
	}

	s := m.Snapshot()
	tables := []struct {
		name string
		v    interface{}
	}{
		{"registers", s.Registers},
		{"fields", map[string]interface{}{"ref": s.RegFields, "imm": s.ImmFields}},
		{"relocations", s.Relocations},
		{"immediate classes", s.ImmediateClasses},
		{"register classes", map[string]interface{}{
			"classes": s.RegisterClasses,
			"pairs":   s.RegisterPairs,
			"aliases": s.Aliases,
		}},
		{"instructions", s.Instructions},
		{"diagnostics", map[string]interface{}{"errors": s.Errors, "warnings": s.Warnings}},
	}
	for _, t := range tables {
		filename := filepath.Join(dir, makeIdentUnderscores(t.name)+".json")
		if err := writeJSON(filename, t.v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(filename string, v interface{}) error {
	src, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	src = append(src, '\n')
	if err := os.WriteFile(filename, src, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
