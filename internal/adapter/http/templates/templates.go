// Package templates renders the HTML pages and fragments of the web UI.
// The components live in the .templ files; run `templ generate` after
// editing them.
package templates

import "strings"

type IndexData struct {
	CSRFToken string
	Format    string
	Version   string
}

func errorTitle(kind string) string {
	switch kind {
	case "invalid_input":
		return "Invalid URL."
	case "extraction_failed":
		return "Download failed."
	case "transcode_failed":
		return "Conversion failed."
	case "io_failure":
		return "Server error."
	case "cancelled":
		return "Cancelled."
	case "rate_limited":
		return "Slow down."
	case "":
		return "Error."
	default:
		return strings.ToUpper(kind[:1]) + strings.ReplaceAll(kind[1:], "_", " ") + "."
	}
}
