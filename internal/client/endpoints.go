package client

import (
	"fmt"
	"strings"

	"github.com/thoas/go-funk"
)

const (
	validatePath   = "/ws/public/data/validate"
	transformPath  = "/ws/public/data/transform"
	loadPath       = "/ws/public/data/load"
	loadStatusPath = "/ws/public/data/loadStatus"
	downloadPath   = "/ws/public/data/download"
)

// Output formats accepted by the download endpoint.
const (
	FormatCSV  = "application/vnd.sdmx.data+csv"
	FormatJSON = "application/vnd.sdmx.data+json"
	FormatXML  = "application/vnd.sdmx.structurespecificdata+xml"
)

var formatAliases = map[string]string{
	"csv":  FormatCSV,
	"json": FormatJSON,
	"xml":  FormatXML,
}

func ValidateURL(apiEntrypoint string) string   { return joinURL(apiEntrypoint, validatePath) }
func TransformURL(apiEntrypoint string) string  { return joinURL(apiEntrypoint, transformPath) }
func LoadURL(apiEntrypoint string) string       { return joinURL(apiEntrypoint, loadPath) }
func LoadStatusURL(apiEntrypoint string) string { return joinURL(apiEntrypoint, loadStatusPath) }
func DownloadURL(apiEntrypoint string) string   { return joinURL(apiEntrypoint, downloadPath) }

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// ResolveFormat maps csv, json or xml to its media type. Known media
// types are returned as is.
func ResolveFormat(format string) (string, error) {
	if mediaType, ok := formatAliases[strings.ToLower(format)]; ok {
		return mediaType, nil
	}
	if funk.ContainsString(funk.Values(formatAliases).([]string), format) {
		return format, nil
	}
	return "", fmt.Errorf("%w: output format %q is not one of csv, json, xml", ErrFormat, format)
}
