package model

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidNotionID is returned when the input cannot be parsed as a Notion ID
var ErrInvalidNotionID = goerr.New("invalid Notion ID")

const notionIDLength = 32

// ParseNotionID accepts a database ID with or without dashes, or a notion.so
// URL whose last path segment ends with one, and returns the dashed form the
// Notion API expects.
func ParseNotionID(input string) (string, error) {
	s := strings.TrimSpace(input)

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil || strings.TrimPrefix(u.Hostname(), "www.") != "notion.so" {
			return "", goerr.Wrap(ErrInvalidNotionID, "not a Notion URL", goerr.V("input", input))
		}
		// Page titles are prefixed to the ID with hyphens
		s = strings.ReplaceAll(path.Base(strings.TrimRight(u.Path, "/")), "-", "")
		if len(s) > notionIDLength {
			s = s[len(s)-notionIDLength:]
		}
	} else {
		s = strings.ReplaceAll(s, "-", "")
	}

	if len(s) != notionIDLength {
		return "", goerr.Wrap(ErrInvalidNotionID, "Notion ID must have 32 hex digits", goerr.V("input", input))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", goerr.Wrap(ErrInvalidNotionID, "Notion ID is not hexadecimal", goerr.V("input", input))
	}
	return id.String(), nil
}
