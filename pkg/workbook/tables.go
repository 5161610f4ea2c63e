package workbook

import (
	"strconv"
	"time"

	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

func (c *Codec) incidentTable(records []model.IncidentRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			r.Date.Format(time.DateOnly),
			r.Time,
			r.Area,
			r.Role,
			r.Type.String(),
			r.Hazard,
			strconv.Itoa(r.LostDays),
			c.classifier.Name(types.AxisProbability, r.Probability),
			c.classifier.Name(types.AxisSeverity, r.Severity),
			strconv.Itoa(r.Score),
			r.Level.String(),
			r.Description,
			r.Key.String(),
		})
	}
	return Table{Name: TableIncidents, Columns: IncidentColumns, Rows: rows}
}

func (c *Codec) hazardTable(entries []model.HazardEntry) Table {
	rows := make([][]string, 0, len(entries))
	for _, h := range entries {
		rows = append(rows, []string{
			h.ID,
			h.Area,
			h.Hazard,
			c.classifier.Name(types.AxisProbability, h.Probability),
			c.classifier.Name(types.AxisSeverity, h.Severity),
			strconv.Itoa(h.Score),
			h.Level.String(),
		})
	}
	return Table{Name: TableHazards, Columns: HazardColumns, Rows: rows}
}

func trainingTable(records []model.TrainingRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, t := range records {
		rows = append(rows, []string{
			t.Month.String(),
			strconv.Itoa(t.Sessions),
			strconv.Itoa(t.Attendees),
		})
	}
	return Table{Name: TableTraining, Columns: TrainingColumns, Rows: rows}
}

func rowField(table string, row int, column string) string {
	return table + "[" + strconv.Itoa(row) + "]." + column
}

func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (c *Codec) decodeIncidents(s *sheet, verr *model.ValidationError) []model.IncidentRecord {
	records := make([]model.IncidentRecord, 0, len(s.table.Rows))
	for i, row := range s.table.Rows {
		before := len(verr.Fields)

		date, ok := model.ParseDate(s.cell(row, "Date"))
		if !ok {
			verr.Add(rowField(TableIncidents, i, "Date"), s.cell(row, "Date"), "invalid date")
		}
		incidentType, err := types.ParseIncidentType(s.cell(row, "Type"))
		if err != nil {
			verr.Add(rowField(TableIncidents, i, "Type"), s.cell(row, "Type"), "unknown incident type")
		}
		lostDays, ok := parseCount(s.cell(row, "LostDays"))
		if !ok {
			verr.Add(rowField(TableIncidents, i, "LostDays"), s.cell(row, "LostDays"), "lost days must be a non-negative integer")
		}
		probability, err := c.classifier.Resolve(types.AxisProbability, s.cell(row, "Probability"))
		if err != nil {
			verr.Add(rowField(TableIncidents, i, "Probability"), s.cell(row, "Probability"), "unknown probability tier")
		}
		severity, err := c.classifier.Resolve(types.AxisSeverity, s.cell(row, "Severity"))
		if err != nil {
			verr.Add(rowField(TableIncidents, i, "Severity"), s.cell(row, "Severity"), "unknown severity tier")
		}
		if len(verr.Fields) > before {
			continue
		}

		score, level, err := c.classifier.Classify(probability, severity)
		if err != nil {
			verr.Add(rowField(TableIncidents, i, "Probability"), probability.String(), err.Error())
			continue
		}

		records = append(records, model.IncidentRecord{
			Key:         model.RecordKey(s.cell(row, "Key")),
			ID:          s.text(row, "ID"),
			Date:        date,
			Time:        s.text(row, "Time"),
			Area:        s.text(row, "Area"),
			Role:        s.text(row, "Role"),
			Type:        incidentType,
			Hazard:      s.text(row, "Hazard"),
			LostDays:    lostDays,
			Probability: probability,
			Severity:    severity,
			Score:       score,
			Level:       level,
			Description: s.text(row, "Description"),
		})
	}
	return records
}

func (c *Codec) decodeHazards(s *sheet, verr *model.ValidationError) []model.HazardEntry {
	entries := make([]model.HazardEntry, 0, len(s.table.Rows))
	for i, row := range s.table.Rows {
		id := s.text(row, "ID")
		if s.cell(row, "ID") == "" {
			verr.Add(rowField(TableHazards, i, "ID"), "", "hazard identifier is required")
			continue
		}

		p, sev, score, level, err := c.classifier.ClassifyLabels(s.cell(row, "Probability"), s.cell(row, "Severity"))
		if err != nil {
			verr.Add(rowField(TableHazards, i, "Probability/Severity"),
				s.cell(row, "Probability")+"/"+s.cell(row, "Severity"), "unknown tier")
			continue
		}

		entries = append(entries, model.HazardEntry{
			ID:          id,
			Area:        s.text(row, "Area"),
			Hazard:      s.text(row, "Hazard"),
			Probability: p,
			Severity:    sev,
			Score:       score,
			Level:       level,
		})
	}
	return entries
}

func decodeTraining(s *sheet, verr *model.ValidationError) []model.TrainingRecord {
	records := make([]model.TrainingRecord, 0, len(s.table.Rows))
	for i, row := range s.table.Rows {
		month, err := model.ParseMonth(s.cell(row, "Month"))
		if err != nil {
			verr.Add(rowField(TableTraining, i, "Month"), s.cell(row, "Month"), "month must be YYYY-MM")
			continue
		}
		sessions, ok := parseCount(s.cell(row, "Sessions"))
		if !ok {
			verr.Add(rowField(TableTraining, i, "Sessions"), s.cell(row, "Sessions"), "sessions must be a non-negative integer")
			continue
		}
		attendees, ok := parseCount(s.cell(row, "Attendees"))
		if !ok {
			verr.Add(rowField(TableTraining, i, "Attendees"), s.cell(row, "Attendees"), "attendees must be a non-negative integer")
			continue
		}
		records = append(records, model.TrainingRecord{Month: month, Sessions: sessions, Attendees: attendees})
	}
	return records
}
