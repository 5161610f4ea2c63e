// Package workbook converts ledger snapshots to and from the canonical
// multi-table document that is persisted locally and mirrored remotely.
package workbook

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/risk"
)

const (
	Format  = "anzen.workbook"
	Version = 1
)

// Table names
const (
	TableIncidents = "Incidents"
	TableHazards   = "Hazards"
	TableTraining  = "Training"
)

// Column names of each table. They are the external contract of the document.
var (
	IncidentColumns = []string{"ID", "Date", "Time", "Area", "Role", "Type", "Hazard", "LostDays", "Probability", "Severity", "Score", "Level", "Description", "Key"}
	HazardColumns   = []string{"ID", "Area", "Hazard", "Probability", "Severity", "Score", "Level"}
	TrainingColumns = []string{"Month", "Sessions", "Attendees"}
)

var (
	requiredIncidentColumns = []string{"Date", "Type", "Probability", "Severity"}
	requiredHazardColumns   = []string{"ID", "Probability", "Severity"}
	requiredTrainingColumns = []string{"Month", "Sessions", "Attendees"}
)

// Table is a named sheet of string cells
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Document is the serialised workbook
type Document struct {
	Format     string  `json:"format"`
	Version    int     `json:"version"`
	Vocabulary string  `json:"vocabulary,omitempty"`
	Tables     []Table `json:"tables"`
}

// Table returns the table with the given name, matched like a header
func (d *Document) Table(name string) *Table {
	for i := range d.Tables {
		if normalizeHeader(d.Tables[i].Name) == normalizeHeader(name) {
			return &d.Tables[i]
		}
	}
	return nil
}

// Codec encodes and decodes workbooks. Tier cells are written with the
// vocabulary display names and resolved through the classifier on decode.
type Codec struct {
	classifier *risk.Classifier
}

func New(classifier *risk.Classifier) *Codec {
	return &Codec{classifier: classifier}
}

// Encode serialises a snapshot. The output depends only on the records, so
// equal snapshots always produce identical bytes.
func (c *Codec) Encode(s *model.LedgerSnapshot) ([]byte, error) {
	if s == nil {
		return nil, goerr.New("snapshot is required")
	}

	doc := c.Document(s)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal workbook")
	}
	return append(data, '\n'), nil
}

// Document builds the table representation of a snapshot
func (c *Codec) Document(s *model.LedgerSnapshot) *Document {
	return &Document{
		Format:     Format,
		Version:    Version,
		Vocabulary: s.VocabularyVersion,
		Tables: []Table{
			c.incidentTable(s.Incidents),
			c.hazardTable(s.Hazards),
			trainingTable(s.Training),
		},
	}
}

// Decode parses a workbook into a snapshot. Scores and levels are derived
// from the tiers; the Score and Level cells are informational only.
func (c *Codec) Decode(data []byte) (*model.LedgerSnapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse workbook")
	}
	if doc.Format != Format {
		return nil, goerr.New("unknown workbook format", goerr.V("format", doc.Format))
	}
	if doc.Version != Version {
		return nil, goerr.New("unsupported workbook version", goerr.V("version", doc.Version))
	}

	return c.DecodeDocument(&doc)
}

// DecodeDocument converts already parsed tables into a snapshot. Missing
// tables are treated as empty.
func (c *Codec) DecodeDocument(doc *Document) (*model.LedgerSnapshot, error) {
	verr := &model.ValidationError{}
	snapshot := &model.LedgerSnapshot{
		Incidents:         []model.IncidentRecord{},
		Hazards:           []model.HazardEntry{},
		Training:          []model.TrainingRecord{},
		VocabularyVersion: doc.Vocabulary,
	}

	if t := doc.Table(TableIncidents); t != nil {
		if s, ok := newSheet(t, requiredIncidentColumns, verr); ok {
			snapshot.Incidents = c.decodeIncidents(s, verr)
		}
	}
	if t := doc.Table(TableHazards); t != nil {
		if s, ok := newSheet(t, requiredHazardColumns, verr); ok {
			snapshot.Hazards = c.decodeHazards(s, verr)
		}
	}
	if t := doc.Table(TableTraining); t != nil {
		if s, ok := newSheet(t, requiredTrainingColumns, verr); ok {
			snapshot.Training = decodeTraining(s, verr)
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, goerr.Wrap(err, "invalid workbook")
	}
	return snapshot, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sheet gives access to the cells of a table by canonical column name
type sheet struct {
	table *Table
	index map[string]int
}

func newSheet(t *Table, required []string, verr *model.ValidationError) (*sheet, bool) {
	s := &sheet{table: t, index: make(map[string]int, len(t.Columns))}
	for i, col := range t.Columns {
		key := normalizeHeader(col)
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
	}

	ok := true
	for _, col := range required {
		if _, found := s.index[normalizeHeader(col)]; !found {
			verr.Add(t.Name+"."+col, "", "required column is missing")
			ok = false
		}
	}
	return s, ok
}

// cell returns a trimmed value for columns that are parsed (dates, tiers,
// numbers, types and keys)
func (s *sheet) cell(row []string, column string) string {
	return strings.TrimSpace(s.text(row, column))
}

// text returns a free-text value exactly as stored
func (s *sheet) text(row []string, column string) string {
	i, ok := s.index[normalizeHeader(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
