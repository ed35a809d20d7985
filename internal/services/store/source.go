package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	_ "modernc.org/sqlite"

	"college-predictor/internal/models"
	"college-predictor/internal/utils"
)

// Source errors
var (
	ErrUnsupportedSource = errors.New("unsupported source file type")
	ErrRemoteSQLite      = errors.New("sqlite sources must be local files")
	ErrNoS3Client        = errors.New("s3 source configured without an s3 client")
)

// ObjectReader reads objects from an object store. s3service.Service implements it.
type ObjectReader interface {
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Opener opens a source location for reading.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// LocalOpener opens local files, and s3://bucket/key locations when S3 is set.
type LocalOpener struct {
	S3 ObjectReader
}

// Open implements Opener.
func (o LocalOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if bucket, key, ok := ParseS3URI(location); ok {
		if o.S3 == nil {
			return nil, ErrNoS3Client
		}
		return o.S3.OpenObject(ctx, bucket, key)
	}
	return os.Open(location)
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// parseResult is the outcome of parsing one source file.
type parseResult struct {
	records []models.CutoffRecord
	dropped int
	err     error
}

// parseSource reads every record of one source file. Invalid records are counted and
// dropped; only an unreadable file produces an error.
func parseSource(ctx context.Context, opener Opener, location, exam string) parseResult {
	switch sourceKind(location) {
	case "json":
		rc, err := opener.Open(ctx, location)
		if err != nil {
			return parseResult{err: err}
		}
		defer rc.Close()
		return parseJSON(rc, exam)
	case "csv":
		rc, err := opener.Open(ctx, location)
		if err != nil {
			return parseResult{err: err}
		}
		defer rc.Close()
		records, errs := utils.NewCSVParser().ParseCutoffs(rc, exam)
		if len(records) == 0 && len(errs) > 0 && !errors.Is(errs[0], utils.ErrNoDataRows) {
			return parseResult{err: errs[0]}
		}
		dropped := len(errs)
		if len(records) == 0 && dropped > 0 {
			dropped-- // leading ErrNoDataRows is not a row
		}
		return parseResult{records: records, dropped: dropped}
	case "sqlite":
		if _, _, remote := ParseS3URI(location); remote {
			return parseResult{err: ErrRemoteSQLite}
		}
		return parseSQLite(ctx, location, exam)
	}
	return parseResult{err: fmt.Errorf("%w: %s", ErrUnsupportedSource, location)}
}

func sourceKind(location string) string {
	switch strings.ToLower(path.Ext(location)) {
	case ".json":
		return "json"
	case ".csv":
		return "csv"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return ""
}

// parseJSON accepts either a top-level array of records or an object wrapping the
// array under "records" or "data".
func parseJSON(r io.Reader, exam string) parseResult {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return parseResult{err: fmt.Errorf("invalid json: %w", err)}
	}

	var items []interface{}
	switch t := doc.(type) {
	case []interface{}:
		items = t
	case map[string]interface{}:
		for _, k := range []string{"records", "data", "cutoffs"} {
			if arr, ok := t[k].([]interface{}); ok {
				items = arr
				break
			}
		}
		if items == nil {
			return parseResult{err: errors.New("invalid json: no record array found")}
		}
	default:
		return parseResult{err: errors.New("invalid json: expected an array of records")}
	}

	res := parseResult{records: make([]models.CutoffRecord, 0, len(items))}
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			res.dropped++
			continue
		}
		rec, err := models.ParseCutoff(models.RawCutoff(m), exam)
		if err != nil {
			res.dropped++
			continue
		}
		res.records = append(res.records, rec)
	}
	return res
}

// parseSQLite reads the cutoffs table of a SQLite database. When the table has an
// exam_type column, rows for other exams are skipped.
func parseSQLite(ctx context.Context, file, exam string) parseResult {
	if _, err := os.Stat(file); err != nil {
		return parseResult{err: err}
	}

	db, err := sql.Open("sqlite", file)
	if err != nil {
		return parseResult{err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM cutoffs")
	if err != nil {
		return parseResult{err: fmt.Errorf("failed to query cutoffs: %w", err)}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return parseResult{err: err}
	}

	var res parseResult
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			res.dropped++
			continue
		}
		raw := make(models.RawCutoff, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				raw[c] = string(b)
			} else {
				raw[c] = values[i]
			}
		}
		if et, ok := raw["exam_type"].(string); ok && et != "" && !strings.EqualFold(et, exam) {
			continue
		}
		rec, err := models.ParseCutoff(raw, exam)
		if err != nil {
			res.dropped++
			continue
		}
		res.records = append(res.records, rec)
	}
	if err := rows.Err(); err != nil {
		return parseResult{err: err}
	}
	return res
}

// SourceReport summarizes a parsed source file.
type SourceReport struct {
	Location string `json:"location"`
	Exam     string `json:"exam"`
	Records  int    `json:"records"`
	Dropped  int    `json:"dropped"`
}

// CheckSource parses one source file without loading it into a store.
func CheckSource(ctx context.Context, opener Opener, location, exam string) (SourceReport, error) {
	if opener == nil {
		opener = LocalOpener{}
	}
	res := parseSource(ctx, opener, location, exam)
	if res.err != nil {
		return SourceReport{}, res.err
	}
	return SourceReport{
		Location: location,
		Exam:     exam,
		Records:  len(res.records),
		Dropped:  res.dropped,
	}, nil
}
