package cli_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/cli"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return cli.Run(context.Background(), append([]string{"anzen", "--log-level", "warn"}, args...), "test")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	gt.NoError(t, err).Required()
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	gt.NoError(t, err).Required()
	return rows
}

func recordArgs(ledgerFile, id, probability, severity string) []string {
	return []string{
		"record",
		"--ledger-file", ledgerFile,
		"--id", id,
		"--date", "2024-03-15",
		"--area", "Warehouse",
		"--type", "Accidente",
		"--lost-days", "2",
		"--probability", probability,
		"--severity", severity,
	}
}

func TestRun_RecordAndExport(t *testing.T) {
	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "ledger.json")

	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-1", "Alta", "Crítica")...)).Required()
	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-1", "Baja", "Leve")...)).Required()

	out := filepath.Join(dir, "incidents.csv")
	gt.NoError(t, run(t, "export", "--ledger-file", ledgerFile, "--table", "Incidents", "--output", out)).Required()

	rows := readCSV(t, out)
	gt.Array(t, rows).Length(3).Required()
	gt.Value(t, rows[0][0]).Equal("ID")

	// Repeated identifiers are kept as separate records
	gt.Value(t, rows[1][0]).Equal("INC-1")
	gt.Value(t, rows[2][0]).Equal("INC-1")
	gt.Value(t, rows[1][len(rows[1])-1]).NotEqual(rows[2][len(rows[2])-1])
}

func TestRun_RecordRejectsInvalidIncident(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")

	err := run(t, recordArgs(ledgerFile, "INC-1", "Unknown", "Leve")...)
	gt.Value(t, err).NotNil()

	_, statErr := os.Stat(ledgerFile)
	gt.Bool(t, os.IsNotExist(statErr)).True()
}

func TestRun_RecordWithMemoryMirror(t *testing.T) {
	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "ledger.json")

	args := append(recordArgs(ledgerFile, "INC-1", "Alta", "Grave"), "--mirror", "memory")
	gt.NoError(t, run(t, args...)).Required()

	_, err := os.Stat(ledgerFile + ".sync")
	gt.NoError(t, err)
}

func TestRun_ImportWorkbookDocument(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.json")
	target := filepath.Join(dir, "target.json")

	gt.NoError(t, run(t, recordArgs(source, "INC-1", "Alta", "Grave")...)).Required()
	gt.NoError(t, run(t, recordArgs(source, "INC-2", "Media", "Leve")...)).Required()

	document := filepath.Join(dir, "workbook.json")
	gt.NoError(t, run(t, "export", "--ledger-file", source, "--document", "--output", document)).Required()

	gt.NoError(t, run(t, "import", "--ledger-file", target, "--workbook", document)).Required()

	out := filepath.Join(dir, "imported.csv")
	gt.NoError(t, run(t, "export", "--ledger-file", target, "--output", out)).Required()
	gt.Array(t, readCSV(t, out)).Length(3)
}

func TestRun_ImportRequiresSource(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	gt.Value(t, run(t, "import", "--ledger-file", ledgerFile)).NotNil()
}

func TestRun_ReportJSON(t *testing.T) {
	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "ledger.json")

	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-1", "Muy Alta", "Crítica")...)).Required()
	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-2", "Alta", "Crítica")...)).Required()

	out := filepath.Join(dir, "report.json")
	gt.NoError(t, run(t, "report", "--ledger-file", ledgerFile, "--format", "json", "--output", out)).Required()

	data, err := os.ReadFile(out)
	gt.NoError(t, err).Required()

	var report struct {
		TotalIncidents   int            `json:"total_incidents"`
		LostDays         int            `json:"lost_days"`
		RiskDistribution map[string]int `json:"risk_distribution"`
		HighRisk         []struct {
			ID    string `json:"id"`
			Score int    `json:"score"`
		} `json:"high_risk"`
	}
	gt.NoError(t, json.Unmarshal(data, &report)).Required()
	gt.Value(t, report.TotalIncidents).Equal(2)
	gt.Value(t, report.LostDays).Equal(4)
	gt.Value(t, report.RiskDistribution["High"]).Equal(1)
	gt.Value(t, report.RiskDistribution["Medium"]).Equal(1)
	gt.Array(t, report.HighRisk).Length(1).Required()
	gt.Value(t, report.HighRisk[0].ID).Equal("INC-1")
	gt.Value(t, report.HighRisk[0].Score).Equal(16)
}

func TestRun_ReportText(t *testing.T) {
	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "ledger.json")
	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-1", "Alta", "Grave")...)).Required()

	out := filepath.Join(dir, "report.txt")
	gt.NoError(t, run(t, "report", "--ledger-file", ledgerFile, "--output", out)).Required()

	data, err := os.ReadFile(out)
	gt.NoError(t, err).Required()
	gt.String(t, string(data)).Contains("Risk distribution")
	gt.String(t, string(data)).Contains("Warehouse")
}

func TestRun_ReportSummaryRequiresGemini(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	gt.Value(t, run(t, "report", "--ledger-file", ledgerFile, "--summary")).NotNil()
}

func TestRun_SyncPullWithoutMirror(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	gt.Value(t, run(t, "sync", "--ledger-file", ledgerFile, "--pull")).NotNil()
}

func TestRun_SyncWithoutMirror(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	gt.NoError(t, run(t, recordArgs(ledgerFile, "INC-1", "Alta", "Grave")...)).Required()
	gt.NoError(t, run(t, "sync", "--ledger-file", ledgerFile))
}

func TestRun_SyncHistory(t *testing.T) {
	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "ledger.json")
	out := filepath.Join(dir, "history.tsv")

	gt.NoError(t, run(t, "sync", "--ledger-file", ledgerFile, "--mirror", "memory", "--history", "5", "--output", out)).Required()

	data, err := os.ReadFile(out)
	gt.NoError(t, err).Required()
	gt.Value(t, string(data)).Equal("pushed_at\tversion\tprevious\tbase\n")
}

func TestRun_SyncHistoryWithoutMirror(t *testing.T) {
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")
	gt.Value(t, run(t, "sync", "--ledger-file", ledgerFile, "--history", "5")).NotNil()
}

func TestWriteHistory(t *testing.T) {
	pushed := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	revs := []*model.Revision{
		{Version: "v2", Previous: "v1", PushedAt: pushed.Add(time.Hour)},
		{Version: "v1", PushedAt: pushed},
	}

	var buf bytes.Buffer
	gt.NoError(t, cli.WriteHistory(&buf, "v2", revs)).Required()
	gt.Value(t, buf.String()).Equal("pushed_at\tversion\tprevious\tbase\n" +
		"2024-03-15T10:00:00Z\tv2\tv1\t*\n" +
		"2024-03-15T09:00:00Z\tv1\t-\t\n")
}

func TestRun_RecordWithGitHubMirrorWithoutCredentials(t *testing.T) {
	t.Setenv("ANZEN_GITHUB_TOKEN", "")
	ledgerFile := filepath.Join(t.TempDir(), "ledger.json")

	args := append(recordArgs(ledgerFile, "INC-1", "Alta", "Grave"),
		"--mirror", "github",
		"--github-repository", "acme/safety",
	)
	gt.NoError(t, run(t, args...)).Required()

	_, err := os.Stat(ledgerFile)
	gt.NoError(t, err)
}
