package notion

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

// Service provides interface to Notion API
type Service interface {
	// QueryHazards reads every row of a hazard matrix database.
	// Returns an iterator that yields HazardRow and error pairs.
	QueryHazards(ctx context.Context, dbID string) iter.Seq2[*HazardRow, error]
}

// HazardRow is one hazard matrix row as written in Notion. Tier columns keep
// the source labels; they are resolved by the vocabulary on import.
type HazardRow struct {
	PageID      string
	URL         string
	ID          string
	Area        string
	Hazard      string
	Probability string
	Severity    string
}

// Input converts the row into a ledger hazard input
func (r *HazardRow) Input() model.HazardInput {
	id := r.ID
	if id == "" {
		id = r.PageID
	}
	return model.HazardInput{
		ID:          id,
		Area:        r.Area,
		Hazard:      r.Hazard,
		Probability: r.Probability,
		Severity:    r.Severity,
	}
}

// Property names of the hazard database, matched ignoring case and spaces
const (
	PropertyID          = "ID"
	PropertyArea        = "Area"
	PropertyHazard      = "Hazard"
	PropertyProbability = "Probability"
	PropertySeverity    = "Severity"
)

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hazardFromProperties(pageID, url string, props notionapi.Properties) *HazardRow {
	byName := make(map[string]notionapi.Property, len(props))
	for name, prop := range props {
		byName[normalizeName(name)] = prop
	}
	text := func(name string) string {
		return propertyText(byName[normalizeName(name)])
	}

	return &HazardRow{
		PageID:      pageID,
		URL:         url,
		ID:          text(PropertyID),
		Area:        text(PropertyArea),
		Hazard:      text(PropertyHazard),
		Probability: text(PropertyProbability),
		Severity:    text(PropertySeverity),
	}
}

// propertyText renders the property kinds a hazard matrix uses as plain text
func propertyText(prop notionapi.Property) string {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case notionapi.TitleProperty:
		return plainText(p.Title)
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	case *notionapi.SelectProperty:
		return strings.TrimSpace(p.Select.Name)
	case notionapi.SelectProperty:
		return strings.TrimSpace(p.Select.Name)
	case *notionapi.NumberProperty:
		return strconv.FormatFloat(p.Number, 'f', -1, 64)
	case notionapi.NumberProperty:
		return strconv.FormatFloat(p.Number, 'f', -1, 64)
	default:
		return ""
	}
}

func plainText(rt []notionapi.RichText) string {
	var sb strings.Builder
	for _, t := range rt {
		sb.WriteString(t.PlainText)
	}
	return strings.TrimSpace(sb.String())
}
