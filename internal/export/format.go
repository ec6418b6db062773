package export

import "strings"

// Format is a supported serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ParseFormat interprets a caller-supplied format string. Matching is
// case-insensitive and unrecognized values fall back to JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV
	case "xml":
		return FormatXML
	default:
		return FormatJSON
	}
}

// ContentType returns the MIME type the HTTP layer should respond with.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// Ext returns the file extension for download filenames.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXML:
		return "xml"
	default:
		return "json"
	}
}
