package workbook

import (
	"encoding/csv"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

// WriteCSV exports one table of the snapshot as CSV with a header row
func (c *Codec) WriteCSV(w io.Writer, s *model.LedgerSnapshot, table string) error {
	if s == nil {
		return goerr.New("snapshot is required")
	}

	t := c.Document(s).Table(table)
	if t == nil {
		return goerr.New("unknown table", goerr.V("table", table))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return goerr.Wrap(err, "failed to write CSV header", goerr.V("table", t.Name))
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return goerr.Wrap(err, "failed to write CSV rows", goerr.V("table", t.Name))
	}
	return nil
}
