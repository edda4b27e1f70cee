// Package export serializes normalized rows (and raw provider records) to
// CSV and JSON text. All functions are pure and deterministic.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/tweetscope/models"
)

// HeaderSampleSize is the number of leading rows inspected to build the CSV
// header. Fields that first appear after the sample window get no column.
const HeaderSampleSize = 5

// Format is an export output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatRawCSV Format = "raw"
)

// ParseFormat validates a format name. Empty input means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatRawCSV:
		return FormatRawCSV, nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("unknown export format %q: want csv, json or raw", s))
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatJSON {
		return "json"
	}
	return "csv"
}

// ToCSV renders rows as CSV text. The header is the sorted set of field
// names present in the first HeaderSampleSize rows. Strings are always
// quoted, numbers never are, and missing values are left empty.
// Empty input yields "".
func ToCSV(rows []models.NormalizedRow) string {
	if len(rows) == 0 {
		return ""
	}

	values := make([]map[string]any, len(rows))
	for i, row := range rows {
		values[i] = row.Values()
	}

	seen := make(map[string]struct{})
	for _, v := range values[:min(HeaderSampleSize, len(values))] {
		for k := range v {
			seen[k] = struct{}{}
		}
	}
	headers := sortedKeys(seen)

	var sb strings.Builder
	sb.WriteString(strings.Join(headers, ","))
	sb.WriteByte('\n')
	for _, v := range values {
		for i, h := range headers {
			if i > 0 {
				sb.WriteByte(',')
			}
			if val, ok := v[h]; ok {
				sb.WriteString(formatCell(val))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToJSON renders rows as a JSON array indented with two spaces.
// Empty input yields "" rather than "[]".
func ToJSON(rows []models.NormalizedRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// RawToCSV renders unnormalized provider records. Columns are the top-level
// keys of the first HeaderSampleSize records (except "user" and "media")
// plus "user_<key>" for every key of their nested user object. Missing and
// null values render as an empty quoted string; nested objects and arrays
// render as compact JSON.
func RawToCSV(records []models.RawRecord) string {
	if len(records) == 0 {
		return ""
	}

	seen := make(map[string]struct{})
	for _, rec := range records[:min(HeaderSampleSize, len(records))] {
		for k := range rec {
			if k != "user" && k != "media" {
				seen[k] = struct{}{}
			}
		}
		for k := range rec.Map("user") {
			seen[userPrefix+k] = struct{}{}
		}
	}
	headers := sortedKeys(seen)

	var sb strings.Builder
	sb.WriteString(strings.Join(headers, ","))
	sb.WriteByte('\n')
	for _, rec := range records {
		user := rec.Map("user")
		for i, h := range headers {
			if i > 0 {
				sb.WriteByte(',')
			}
			var val any
			if strings.HasPrefix(h, userPrefix) {
				val = user[strings.TrimPrefix(h, userPrefix)]
			} else {
				val = rec[h]
			}
			if val == nil {
				val = ""
			}
			sb.WriteString(formatCell(val))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Encode renders rows in the given format. Raw CSV needs the raw records.
func Encode(format Format, rows []models.NormalizedRow, raw []models.RawRecord) (string, error) {
	switch format {
	case FormatJSON:
		return ToJSON(rows)
	case FormatRawCSV:
		return RawToCSV(raw), nil
	default:
		return ToCSV(rows), nil
	}
}

// Filename returns the download name for an export created at t, e.g.
// "twitter-data-2025-01-02T03-04-05-678Z.csv".
func Filename(format Format, t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "twitter-data-" + ts + "." + format.Extension()
}

const userPrefix = "user_"

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return formatCell(string(b))
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
