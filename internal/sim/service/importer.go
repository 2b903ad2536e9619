package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// ImportReport summarizes a bulk import run. Row-level problems land in
// Errors; they never abort the rest of the batch.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

type importRow struct {
	line   int
	iccid  string
	msisdn string
}

// Import reads CSV rows of the form `iccid,msisdn` (an optional header row
// is tolerated) and creates an AVAILABLE SIM per row, each in its own
// transaction with CREATED and IMPORTED events. Rows run concurrently with
// bounded parallelism; correctness under concurrency comes from the store's
// unique constraints, not from any shared in-process state.
//
// Duplicate policy: a row whose ICCID already exists is skipped, not an
// error. Empty MSISDN cells get one allocated.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []importRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, simerrors.Wrap(err, simerrors.CodeValidation, "malformed csv")
		}
		line++
		if line == 1 && len(record) > 0 && record[0] == "iccid" {
			continue
		}
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}
		row := importRow{line: line, iccid: record[0]}
		if len(record) > 1 {
			row.msisdn = record[1]
		}
		rows = append(rows, row)
	}

	var (
		mu     sync.Mutex
		report ImportReport
	)
	fail := func(line int, msg string) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("line %d: %s", line, msg))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.importWorkers)
	for _, row := range rows {
		g.Go(func() error {
			if !identifier.ValidICCID(row.iccid) {
				fail(row.line, "invalid iccid")
				s.metrics.IncImportRow("failed")
				return nil
			}
			params := CreateParams{
				ICCID:          row.iccid,
				AllocateMSISDN: row.msisdn == "",
				Imported:       true,
				Note:           "csv import",
			}
			if row.msisdn != "" {
				params.MSISDN = &row.msisdn
			}

			_, err := s.Create(ctx, params)
			switch {
			case err == nil:
				mu.Lock()
				report.Imported++
				mu.Unlock()
				s.metrics.IncImportRow("imported")
			case simerrors.HasCode(err, simerrors.CodeConflict):
				// Colliding ICCID/MSISDN: skip the row, keep the batch going.
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				s.metrics.IncImportRow("skipped")
			case simerrors.HasCode(err, simerrors.CodeValidation):
				fail(row.line, err.Error())
				s.metrics.IncImportRow("failed")
			default:
				// Store-level failures abort the batch; remaining rows were
				// never observed as committed.
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &report, nil
}
