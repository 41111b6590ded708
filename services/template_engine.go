package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"courier_track_go/models"
)

// placeholderRegex matches ##field_name## tokens
var placeholderRegex = regexp.MustCompile(`##([a-zA-Z0-9_]+)##`)

// RenderResult is the outcome of substituting field values into a template
type RenderResult struct {
	Output string `json:"output"`
	// Warnings carry non-fatal issues: placeholders with no matching field
	// definition and optional fields left blank. Unmatched placeholders stay
	// verbatim in the output.
	Warnings []string `json:"warnings,omitempty"`
}

// FieldError is a per-field validation failure in the shape the client
// attaches to form fields
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

// ValidationErrors aggregates field-level failures
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	names := make([]string, len(v))
	for i, fe := range v {
		names[i] = fe.Field
	}
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(names, ", "))
}

// CompilePlaceholders extracts the ordered list of distinct placeholder names
// appearing in the template content
func CompilePlaceholders(content string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range placeholderRegex.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// RenderAuthorityLetter substitutes formatted field values into the template
// content. It is a pure function of its inputs: identical (content, fields,
// values) always yields identical output.
//
// Required fields with no value fail with ValidationErrors. Placeholders
// without a field definition are left verbatim and reported as warnings.
func RenderAuthorityLetter(content string, fields []models.AuthorityLetterField, values map[string]string) (*RenderResult, error) {
	return renderWithEscape(content, fields, values, nil)
}

// renderWithEscape is the substitution core. When escape is non-nil it is
// applied to each formatted value before substitution (the DOCX path escapes
// for XML; the HTML path substitutes verbatim, matching template authoring).
func renderWithEscape(content string, fields []models.AuthorityLetterField, values map[string]string, escape func(string) string) (*RenderResult, error) {
	var errs ValidationErrors
	result := &RenderResult{Output: content}

	fieldByName := make(map[string]models.AuthorityLetterField, len(fields))
	for _, f := range fields {
		fieldByName[f.Name] = f
	}

	for _, name := range CompilePlaceholders(content) {
		if _, ok := fieldByName[name]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("placeholder ##%s## has no field definition and was left as-is", name))
		}
	}

	for _, field := range fields {
		raw, ok := values[field.Name]
		raw = strings.TrimSpace(raw)

		if raw == "" {
			if field.Required {
				errs = append(errs, FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("%s is required", field.Label),
					Value:   "",
				})
				continue
			}
			if !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf("no value supplied for optional field %s", field.Name))
			}
			// Blank optional values substitute as empty strings
		}

		formatted, err := FormatFieldValue(field, raw)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   field.Name,
				Message: err.Error(),
				Value:   raw,
			})
			continue
		}

		if escape != nil {
			formatted = escape(formatted)
		}
		result.Output = strings.ReplaceAll(result.Output, "##"+field.Name+"##", formatted)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return result, nil
}

// FormatFieldValue applies the field's type-specific parse and format rules
// to a raw value. Empty values format to the empty string for every type.
func FormatFieldValue(field models.AuthorityLetterField, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	switch field.Type {
	case models.FieldTypeDate:
		return formatDateValue(raw, field.Format)
	case models.FieldTypeNumber:
		return formatNumberValue(raw, field.Format)
	default: // text, textarea, dropdown
		return applyTextTransform(raw, field.Format), nil
	}
}

// dateLayouts maps the supported date format names to Go time layouts
var dateLayouts = map[string]string{
	"DD-MM-YYYY":     "02-01-2006",
	"MM/DD/YYYY":     "01/02/2006",
	"YYYY-MM-DD":     "2006-01-02",
	"DD/MM/YYYY":     "02/01/2006",
	"MM-DD-YYYY":     "01-02-2006",
	"YYYY/MM/DD":     "2006/01/02",
	"DD Month YYYY":  "02 January 2006",
	"Month DD, YYYY": "January 02, 2006",
	"DD Mon YYYY":    "02 Jan 2006",
	"Mon DD, YYYY":   "Jan 02, 2006",
	"DD.MM.YYYY":     "02.01.2006",
	"YYYYMMDD":       "20060102",
	"DD-Mon-YY":      "02-Jan-06",
}

// DateLayoutFor resolves a date format name to its Go time layout
func DateLayoutFor(format string) (string, bool) {
	layout, ok := dateLayouts[format]
	return layout, ok
}

// SupportedDateFormats returns the date format names accepted on date fields
func SupportedDateFormats() []string {
	names := make([]string, 0, len(dateLayouts))
	for name := range dateLayouts {
		names = append(names, name)
	}
	return names
}

func formatDateValue(raw, format string) (string, error) {
	parsed, err := ParseDate(raw)
	if err != nil {
		return "", err
	}

	layout, ok := dateLayouts[format]
	if !ok {
		// Unknown format falls back to the input form
		layout = "2006-01-02"
	}
	return parsed.Format(layout), nil
}

func formatNumberValue(raw, format string) (string, error) {
	// Validate it is numeric regardless of output format
	clean := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(clean, "-") {
		sign = "-"
		clean = clean[1:]
	}

	intPart := clean
	fracPart := ""
	if idx := strings.Index(clean, "."); idx >= 0 {
		intPart = clean[:idx]
		fracPart = clean[idx+1:]
	}
	if intPart == "" || !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return "", fmt.Errorf("invalid number: %q", raw)
	}

	if format != models.NumberFormatWithCommas {
		return sign + intPart + dotJoin(fracPart), nil
	}
	return sign + groupThousands(intPart) + dotJoin(fracPart), nil
}

func dotJoin(frac string) string {
	if frac == "" {
		return ""
	}
	return "." + frac
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// groupThousands inserts commas every three digits from the right
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	first := n % 3
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func applyTextTransform(raw, transform string) string {
	switch transform {
	case models.TextFormatSentence:
		lower := strings.ToLower(raw)
		r := []rune(lower)
		for i, c := range r {
			if unicode.IsLetter(c) {
				r[i] = unicode.ToUpper(c)
				break
			}
		}
		return string(r)
	case models.TextFormatLowercase:
		return strings.ToLower(raw)
	case models.TextFormatUppercase:
		return strings.ToUpper(raw)
	case models.TextFormatCapitalizeWords:
		return capitalizeWords(raw)
	case models.TextFormatToggle:
		return toggleCase(raw)
	default: // none or unknown
		return raw
	}
}

func capitalizeWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func toggleCase(s string) string {
	r := []rune(s)
	for i, c := range r {
		switch {
		case unicode.IsUpper(c):
			r[i] = unicode.ToLower(c)
		case unicode.IsLower(c):
			r[i] = unicode.ToUpper(c)
		}
	}
	return string(r)
}

// WrapHTMLForPDF wraps rendered letter content with print styles for PDF generation
func WrapHTMLForPDF(content string) string {
	return `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page {
            margin: 1in;
        }
        body {
            font-family: "Times New Roman", Times, serif;
            font-size: 12pt;
            line-height: 1.5;
            color: #000;
        }
        h1 {
            font-size: 16pt;
            font-weight: bold;
            text-align: center;
            margin-bottom: 24pt;
        }
        h2 {
            font-size: 14pt;
            font-weight: bold;
            margin-top: 18pt;
            margin-bottom: 12pt;
        }
        p {
            margin-bottom: 12pt;
        }
        .signature-block {
            margin-top: 48pt;
        }
        .signature-line {
            border-top: 1px solid #000;
            width: 3in;
            margin-top: 36pt;
            padding-top: 6pt;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 12pt;
        }
        th, td {
            border: 1px solid #000;
            padding: 6pt;
            text-align: left;
        }
        th {
            background-color: #f0f0f0;
            font-weight: bold;
        }
    </style>
</head>
<body>
` + content + `
</body>
</html>`
}
