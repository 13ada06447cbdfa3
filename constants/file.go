package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for NF-e ingestion.
var AllowedExtensions = map[string]struct{}{
	"xml": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
