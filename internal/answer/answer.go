// Package answer pulls numeric answers out of model text and program output.
package answer

import (
	"regexp"
	"strconv"
	"strings"
)

// Marker precedes the final answer in model responses and reference solutions.
const Marker = "####"

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	labelRe  = regexp.MustCompile(`(?i)(?:answer|result|final)\s*[:=]\s*(-?\d+(?:\.\d+)?)`)
)

// ExtractMarked returns the text after the last marker, up to the end of
// that line. ok is false when the marker is absent.
func ExtractMarked(text string) (raw string, ok bool) {
	i := strings.LastIndex(text, Marker)
	if i < 0 {
		return "", false
	}
	raw = text[i+len(Marker):]
	if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
		raw = raw[:nl]
	}
	return strings.TrimSpace(raw), true
}

// Extract returns the numeric answer following the last marker.
func Extract(text string) (float64, bool) {
	raw, ok := ExtractMarked(text)
	if !ok {
		return 0, false
	}
	return ParseNumber(raw)
}

// ParseNumber reads the first number in s, ignoring thousands separators
// and currency signs.
func ParseNumber(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "").Replace(s)
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FromOutput reads an answer from program output: the last number printed,
// or failing that a labelled value such as "answer: 42".
func FromOutput(stdout string) (float64, bool) {
	cleaned := strings.ReplaceAll(stdout, ",", "")
	if all := numberRe.FindAllString(cleaned, -1); len(all) > 0 {
		if v, err := strconv.ParseFloat(all[len(all)-1], 64); err == nil {
			return v, true
		}
	}
	if m := labelRe.FindStringSubmatch(cleaned); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// Equal compares a prediction with a reference. A missing side never matches.
func Equal(predicted *float64, reference *float64) bool {
	if predicted == nil || reference == nil {
		return false
	}
	return *predicted == *reference
}

// Ptr returns a pointer to v when ok, else nil.
func Ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Format renders a value the way references are written: integers without
// a decimal point.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
