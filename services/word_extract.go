package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

// ExtractWordContent pulls the paragraph text out of a .docx file and returns
// it as simple HTML paragraphs, so an uploaded Word letter can seed the HTML
// content of a template. Formatting beyond paragraph breaks is discarded.
func ExtractWordContent(docxBytes []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to open word document: %w", err)
	}

	var documentXML []byte
	for _, entry := range reader.File {
		if entry.Name != wordDocumentEntry {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read document body: %w", err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read document body: %w", err)
		}
		break
	}
	if documentXML == nil {
		return "", fmt.Errorf("not a valid word document: missing %s", wordDocumentEntry)
	}

	paragraphs, err := extractParagraphs(documentXML)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>\n")
	}
	return b.String(), nil
}

// extractParagraphs walks the WordprocessingML stream collecting the text of
// each w:p element (w:t text runs, w:tab and w:br mapped to whitespace)
func extractParagraphs(documentXML []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(documentXML))

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				if inParagraph {
					current.WriteByte('\t')
				}
			case "br":
				if inParagraph {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
					inParagraph = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
