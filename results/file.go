package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dutchAuction/game"
)

// Header is the first row of every results file.
var Header = []string{"blockNo", "trialNo", "prop", "qty", "startPrice", "endPrice", "step", "oppBid", "price", "winner"}

// FileName derives the results file name from the session start time:
// the ISO-8601 UTC timestamp with ':', ' ' and '/' removed.
func FileName(start time.Time) string {
	iso := start.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "", " ", "", "/", "").Replace(iso) + ".csv"
}

// FileSink rewrites the whole trial table to one CSV file on every save.
type FileSink struct {
	path string
}

// NewFileSink targets dataDir/FileName(start), creating dataDir if needed.
func NewFileSink(dataDir string, start time.Time) (*FileSink, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileSink{path: filepath.Join(dataDir, FileName(start))}, nil
}

func (s *FileSink) Path() string { return s.path }

// Save writes a temp file next to the target and renames it into place, so a
// reader never sees a half-written table.
func (s *FileSink) Save(_ context.Context, trials []game.Trial) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".results-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range trials {
		if err := w.Write(Row(t)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write trial %d/%d: %w", t.BlockNo, t.TrialNo, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace results file: %w", err)
	}
	return nil
}

// Row renders one trial. Resolution fields stay empty until the trial is won.
func Row(t game.Trial) []string {
	step, price := "", ""
	if t.Resolved() {
		step = strconv.Itoa(t.Step)
		price = formatFloat(t.Price)
	}
	return []string{
		strconv.Itoa(t.BlockNo),
		strconv.Itoa(t.TrialNo),
		formatFloat(t.Prop),
		strconv.Itoa(t.Qty),
		formatFloat(t.StartPrice),
		formatFloat(t.EndPrice),
		step,
		formatFloat(t.OppBid),
		price,
		t.Winner,
	}
}

// ReadFile parses a results file back into trials. Rows with a winner come
// back as won; the rest as pending.
func ReadFile(path string) ([]game.Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("results file %s is empty", path)
	}
	for i, col := range Header {
		if records[0][i] != col {
			return nil, fmt.Errorf("unexpected header column %d: %q", i, records[0][i])
		}
	}

	trials := make([]game.Trial, 0, len(records)-1)
	for n, rec := range records[1:] {
		t, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		trials = append(trials, t)
	}
	return trials, nil
}

func parseRow(rec []string) (game.Trial, error) {
	var (
		t   game.Trial
		err error
	)
	if t.BlockNo, err = strconv.Atoi(rec[0]); err != nil {
		return t, fmt.Errorf("blockNo: %w", err)
	}
	if t.TrialNo, err = strconv.Atoi(rec[1]); err != nil {
		return t, fmt.Errorf("trialNo: %w", err)
	}
	if t.Prop, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return t, fmt.Errorf("prop: %w", err)
	}
	if t.Qty, err = strconv.Atoi(rec[3]); err != nil {
		return t, fmt.Errorf("qty: %w", err)
	}
	if t.StartPrice, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return t, fmt.Errorf("startPrice: %w", err)
	}
	if t.EndPrice, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return t, fmt.Errorf("endPrice: %w", err)
	}
	if t.OppBid, err = strconv.ParseFloat(rec[7], 64); err != nil {
		return t, fmt.Errorf("oppBid: %w", err)
	}

	t.Winner = rec[9]
	t.Status = game.TrialPending
	if t.Winner == "" {
		return t, nil
	}

	t.Status = game.TrialWon
	if t.Step, err = strconv.Atoi(rec[6]); err != nil {
		return t, fmt.Errorf("step: %w", err)
	}
	if t.Price, err = strconv.ParseFloat(rec[8], 64); err != nil {
		return t, fmt.Errorf("price: %w", err)
	}
	return t, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
