package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"college-predictor/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no valid data rows")
)

// RequiredColumns must be present in every cutoff CSV. A cutoff column
// (closing_rank, or min_score and max_score) is also required.
var RequiredColumns = []string{
	"institution",
	"program",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// institution aliases
	"college":        "institution",
	"college_name":   "institution",
	"college name":   "institution",
	"institute":      "institution",
	"institute_name": "institution",
	"institute name": "institution",

	// program aliases
	"branch":       "program",
	"course":       "program",
	"degree":       "program",
	"program_name": "program",
	"program name": "program",

	// rank aliases
	"closingrank":  "closing_rank",
	"closing rank": "closing_rank",
	"closing":      "closing_rank",
	"rank":         "closing_rank",
	"openingrank":  "opening_rank",
	"opening rank": "opening_rank",
	"opening":      "opening_rank",

	// score aliases
	"minscore":  "min_score",
	"min score": "min_score",
	"maxscore":  "max_score",
	"max score": "max_score",

	// other
	"seat_type":   "category",
	"seat type":   "category",
	"seat_gender": "gender",
	"state":       "location",
	"city":        "location",
}

// CSVParser parses cutoff CSV files into validated records.
type CSVParser struct {
	columnMapping map[string]int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{columnMapping: make(map[string]int)}
}

// ParseCutoffs reads CSV content and returns the valid records for examType together
// with one error per rejected row. Row errors never abort the parse.
func (p *CSVParser) ParseCutoffs(r io.Reader, examType string) ([]models.CutoffRecord, []error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, []error{ErrEmptyCSV}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	if err := p.buildColumnMapping(header); err != nil {
		return nil, []error{err}
	}

	var records []models.CutoffRecord
	var parseErrors []error
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		rec, err := models.ParseCutoff(p.rawRow(row), examType)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 && len(parseErrors) > 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return records, parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)

	for i, col := range header {
		normalized := normalizeColumn(col)
		if _, seen := p.columnMapping[normalized]; seen {
			continue // first occurrence wins
		}
		p.columnMapping[normalized] = i
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}
	if !p.hasCutoffColumns() {
		missing = append(missing, "closing_rank|min_score+max_score")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

func (p *CSVParser) hasCutoffColumns() bool {
	if _, ok := p.columnMapping["closing_rank"]; ok {
		return true
	}
	_, hasMin := p.columnMapping["min_score"]
	_, hasMax := p.columnMapping["max_score"]
	return hasMin && hasMax
}

// rawRow maps a CSV row onto the standard record keys. Empty cells are left out so
// they read as absent fields.
func (p *CSVParser) rawRow(row []string) models.RawCutoff {
	raw := make(models.RawCutoff, len(p.columnMapping))
	for column, idx := range p.columnMapping {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			raw[column] = v
		}
	}
	return raw
}

func normalizeColumn(col string) string {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	if alias, ok := ColumnAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string) (*CSVValidationResult, error) {
	result := &CSVValidationResult{
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result, nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result, nil
	}

	p := NewCSVParser()
	result.Columns = append(result.Columns, header...)
	if err := p.buildColumnMapping(header); err != nil {
		missing := strings.TrimPrefix(err.Error(), ErrMissingColumns.Error()+": ")
		result.MissingColumns = strings.Split(missing, ", ")
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result, nil
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
