package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"courier_track_go/models"
)

const wordDocumentEntry = "word/document.xml"

// RenderDocx substitutes formatted field values into the document XML of a
// .docx archive and returns the rebuilt archive. Substitution mirrors the
// HTML path: required fields are enforced, values are XML-escaped, unmatched
// placeholders stay verbatim. Entry headers are copied from the source
// archive, so identical inputs produce byte-identical output.
func RenderDocx(docxBytes []byte, fields []models.AuthorityLetterField, values map[string]string) ([]byte, *RenderResult, error) {
	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open word document: %w", err)
	}

	var out bytes.Buffer
	writer := zip.NewWriter(&out)

	var renderResult *RenderResult

	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
		}

		if entry.Name == wordDocumentEntry {
			result, err := renderDocumentXML(string(content), fields, values)
			if err != nil {
				return nil, nil, err
			}
			renderResult = result
			content = []byte(result.Output)
		}

		header := entry.FileHeader
		w, err := writer.CreateHeader(&header)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to write %s: %w", entry.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, nil, fmt.Errorf("failed to write %s: %w", entry.Name, err)
		}
	}

	if renderResult == nil {
		return nil, nil, fmt.Errorf("not a valid word document: missing %s", wordDocumentEntry)
	}

	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize word document: %w", err)
	}

	return out.Bytes(), renderResult, nil
}

// renderDocumentXML runs the placeholder engine over document XML with
// XML-escaped values
func renderDocumentXML(content string, fields []models.AuthorityLetterField, values map[string]string) (*RenderResult, error) {
	return renderWithEscape(content, fields, values, xmlEscape)
}

// xmlEscape escapes a value for inclusion in document XML text nodes
func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
