package services

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"courier_track_go/models"
)

// BulkGenerateRow is one data row of a bulk generation upload, keyed by
// field name as given in the header
type BulkGenerateRow struct {
	Line   int
	Values map[string]string
}

// BulkGenerateResult summarizes a bulk run. Failed rows are skipped, not
// fatal: the archive carries every document that did render.
type BulkGenerateResult struct {
	Archive   []byte
	Generated int
	Failed    int
	Warnings  []string
}

type bulkManifestEntry struct {
	line     int
	filename string
	status   string
	detail   string
}

// ParseBulkGenerateFile reads generation rows from a CSV or XLSX upload.
// The header row names template fields; unknown columns are ignored.
func ParseBulkGenerateFile(filename string, file io.Reader, limit int) ([]BulkGenerateRow, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var records [][]string
	var err error
	switch ext {
	case ".xlsx":
		records, err = readXLSXRows(file)
	default:
		records, err = readCSVRows(file)
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if len(records)-1 > limit {
		return nil, ErrTooManyRows{Rows: len(records) - 1, Limit: limit}
	}

	// Header cells must match field names exactly; placeholders are
	// case-sensitive and field names may carry uppercase letters.
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	var rows []BulkGenerateRow
	for i, record := range records {
		if i == 0 {
			continue
		}
		values := make(map[string]string)
		blank := true
		for j, cell := range record {
			if j >= len(header) || header[j] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			values[header[j]] = cell
		}
		if blank {
			continue
		}
		rows = append(rows, BulkGenerateRow{Line: i, Values: values})
	}

	return rows, nil
}

// BulkGenerateDocuments renders one document per row and packs them into a
// zip with a manifest.csv describing every row's outcome. Templates backed
// by a Word document produce DOCX output; otherwise each row is rendered to
// PDF through headless Chrome.
func BulkGenerateDocuments(template *models.AuthorityLetterTemplate, wordDoc []byte, rows []BulkGenerateRow) (*BulkGenerateResult, error) {
	result := &BulkGenerateResult{}
	var manifest []bulkManifestEntry

	useWord := template.HasWordDocument() && len(wordDoc) > 0
	ext := ".pdf"
	if useWord {
		ext = ".docx"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	usedNames := make(map[string]int)

	for _, row := range rows {
		filename := bulkOutputFilename(template, row, ext, usedNames)

		var output []byte
		var render *RenderResult
		var err error

		if useWord {
			output, render, err = RenderDocx(wordDoc, template.Fields, row.Values)
		} else {
			render, err = RenderAuthorityLetter(template.Content, template.Fields, row.Values)
			if err == nil {
				options := DefaultPDFOptions()
				options.PageOrientation = template.PageOrientation
				options.PageSize = template.PageSize
				output, err = GenerateLetterPDF(render.Output, options)
			}
		}

		if err != nil {
			result.Failed++
			manifest = append(manifest, bulkManifestEntry{line: row.Line, status: "failed", detail: err.Error()})
			continue
		}

		w, err := zw.Create(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
		if _, err := w.Write(output); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", filename, err)
		}

		result.Generated++
		detail := ""
		if len(render.Warnings) > 0 {
			detail = strings.Join(render.Warnings, "; ")
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", row.Line, detail))
		}
		manifest = append(manifest, bulkManifestEntry{line: row.Line, filename: filename, status: "generated", detail: detail})
	}

	if err := writeBulkManifest(zw, manifest); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	result.Archive = buf.Bytes()
	return result, nil
}

// bulkOutputFilename derives a document name from the row's first field
// value, falling back to the row number, and de-duplicates collisions
func bulkOutputFilename(template *models.AuthorityLetterTemplate, row BulkGenerateRow, ext string, used map[string]int) string {
	base := ""
	for _, field := range template.Fields {
		if v := strings.TrimSpace(row.Values[field.Name]); v != "" {
			base = sanitizeFilename(v)
			break
		}
	}
	if base == "" {
		base = fmt.Sprintf("row_%d", row.Line)
	}

	name := base
	used[base]++
	if n := used[base]; n > 1 {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	return name + ext
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}

func writeBulkManifest(zw *zip.Writer, entries []bulkManifestEntry) error {
	w, err := zw.Create("manifest.csv")
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "filename", "status", "detail"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{fmt.Sprintf("%d", e.line), e.filename, e.status, e.detail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SampleTemplateCSV returns a sample upload file whose header is the
// template's field names in sort order
func SampleTemplateCSV(template *models.AuthorityLetterTemplate) []byte {
	header := make([]string, 0, len(template.Fields))
	example := make([]string, 0, len(template.Fields))
	for _, field := range template.Fields {
		header = append(header, field.Name)
		example = append(example, sampleFieldValue(field))
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(header)
	_ = w.Write(example)
	w.Flush()
	return []byte(b.String())
}

func sampleFieldValue(field models.AuthorityLetterField) string {
	switch field.Type {
	case models.FieldTypeDate:
		return "2025-01-15"
	case models.FieldTypeNumber:
		return "1234567"
	case models.FieldTypeDropdown:
		if len(field.DropdownOptions) > 0 {
			return field.DropdownOptions[0].Value
		}
		return "option"
	default:
		return "Sample " + field.Label
	}
}
