// Package backup reads and writes the portable application formats: the JSON
// backup array and the CSV export.
package backup

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/jobtrack/pkg/models"
)

var ErrInvalidBackup = errors.New("invalid backup")

//go:embed backup.schema.json
var schemaJSON []byte

var schema = mustCompile(schemaJSON)

func mustCompile(b []byte) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		panic(fmt.Sprintf("backup: compile schema: %v", err))
	}
	return rs
}

// CSVHeader is the first row of every export.
var CSVHeader = []string{"ID", "Company", "Role", "Status", "Updates", "Notes"}

// Record is one element of the backup array.
type Record struct {
	ID      int64  `json:"id"`
	Company string `json:"company"`
	Role    string `json:"role"`
	Status  string `json:"status"`
	Updates string `json:"updates"`
	Notes   string `json:"notes"`
}

func toRecord(a models.Application) Record {
	return Record{ID: a.ID, Company: a.Company, Role: a.Role, Status: a.Status, Updates: a.Updates, Notes: a.Notes}
}

func (r Record) application() models.Application {
	return models.Application{ID: r.ID, Company: r.Company, Role: r.Role, Status: r.Status, Updates: r.Updates, Notes: r.Notes}
}

// Encode writes apps as an indented JSON array.
func Encode(w io.Writer, apps []models.Application) error {
	recs := make([]Record, 0, len(apps))
	for _, a := range apps {
		recs = append(recs, toRecord(a))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(recs)
}

// Decode reads a backup array, rejecting any document that does not match
// the backup schema before a single record is returned.
func Decode(ctx context.Context, r io.Reader) ([]models.Application, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%w: not valid json", ErrInvalidBackup)
	}

	kerrs, err := schema.ValidateBytes(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if len(kerrs) > 0 {
		msgs := make([]string, 0, len(kerrs))
		for _, ke := range kerrs {
			msgs = append(msgs, ke.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackup, strings.Join(msgs, "; "))
	}

	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	out := make([]models.Application, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.application())
	}
	return out, nil
}

// WriteCSV writes the export. Multi-line updates and notes stay inside one
// quoted field each.
func WriteCSV(w io.Writer, apps []models.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, a := range apps {
		row := []string{strconv.FormatInt(a.ID, 10), a.Company, a.Role, a.Status, a.Updates, a.Notes}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
