// Package insights implements the streaming aggregation core: the
// accumulator family fed by the archive walker, and the serializer that
// turns finished accumulators into JSON artifacts for the static site.
package insights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf16"

	"sentiscan/internal/stats"
)

// Doc is a JSON-compatible artifact document.
type Doc = map[string]any

// Unavailable is the sentinel rendered wherever a statistic has no samples.
// Never nil, never zero, never NaN: downstream verification rejects those.
func Unavailable(reason string) Doc {
	return Doc{"available": false, "reason": reason}
}

// numOr renders a rounded value or the unavailable sentinel.
func numOr(v float64, ok bool, decimals int, reason string) any {
	if !ok || !stats.IsFinite(v) {
		return Unavailable(reason)
	}
	return stats.Round(v, decimals)
}

// summarize renders the standard n/median/p10/p90 block for a sample list.
func summarize(values []float64, decimals int) any {
	med, ok := stats.Median(values)
	if !ok {
		return Unavailable("no samples")
	}
	p10, _ := stats.Percentile(values, 10)
	p90, _ := stats.Percentile(values, 90)
	return Doc{
		"n":      len(values),
		"median": stats.Round(med, decimals),
		"p10":    stats.Round(p10, decimals),
		"p90":    stats.Round(p90, decimals),
	}
}

// Timestamp formats the artifact generation time: ISO-8601, UTC, Z-suffixed.
func Timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05Z")
}

// sanitize walks a document and replaces any non-finite float with the
// unavailable sentinel, so no NaN/Infinity token can ever reach the encoder.
func sanitize(v any) any {
	switch x := v.(type) {
	case float64:
		if !stats.IsFinite(x) {
			return Unavailable("non-finite value")
		}
		return x
	case float32:
		return sanitize(float64(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = sanitize(val)
		}
		return out
	default:
		return v
	}
}

// Marshal encodes a document as indented, strictly 7-bit-ASCII JSON.
func Marshal(doc Doc) ([]byte, error) {
	data, err := json.MarshalIndent(sanitize(doc), "", "  ")
	if err != nil {
		return nil, err
	}
	return escapeNonASCII(data), nil
}

// escapeNonASCII rewrites any rune above 0x7F as a \uXXXX escape (surrogate
// pairs above the BMP). Valid JSON only carries non-ASCII bytes inside
// string literals, so a whole-document rewrite is safe.
func escapeNonASCII(data []byte) []byte {
	ascii := true
	for _, b := range data {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	for _, r := range string(data) {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = append(out, []byte(fmt.Sprintf(`\u%04x\u%04x`, hi, lo))...)
			continue
		}
		out = append(out, []byte(fmt.Sprintf(`\u%04x`, r))...)
	}
	return out
}

// WriteArtifact serializes doc and writes it to dir/name atomically: the
// bytes land in a temp file first and are renamed into place, so a failed
// run never leaves a partial document behind.
func WriteArtifact(dir, name string, doc Doc) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing %s: %w", name, err)
	}
	return nil
}
