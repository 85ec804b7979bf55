package dfise

import (
	"errors"
	"regexp"
	"strconv"
)

// Section spans are located by keyword and the first closer that follows it.
// Depth is not tracked: a nested "}" inside Info ends the span early. Files
// written by the simulator never nest braces there, so this is accepted.
var (
	infoPattern     = regexp.MustCompile(`Info\s*\{([\s\S]*?)\}`)
	datasetsPattern = regexp.MustCompile(`datasets\s*=\s*\[([\s\S]*?)\]`)
	dataPattern     = regexp.MustCompile(`Data\s*\{([\s\S]*?)\}`)
	quotedPattern   = regexp.MustCompile(`"([^"]+)"`)

	// Only exponent-form literals count; "3.14" is skipped, "3.14e-05" is not.
	literalPattern = regexp.MustCompile(`[-+]?\d*\.\d+[eE][-+]?\d+`)
)

// findSection returns the body captured by pattern in text.
func findSection(pattern *regexp.Regexp, text, name string) (string, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", &SectionNotFoundError{Section: name}
	}
	return m[1], nil
}

// InfoSection returns the body of the first Info block.
func InfoSection(text string) (string, error) {
	return findSection(infoPattern, text, "Info")
}

// DataSection returns the body of the first Data block.
func DataSection(text string) (string, error) {
	return findSection(dataPattern, text, "Data")
}

// DeclaredChannels returns the quoted names of the datasets list inside an
// Info body, in declaration order.
func DeclaredChannels(info string) ([]string, error) {
	list, err := findSection(datasetsPattern, info, "datasets")
	if err != nil {
		return nil, err
	}
	matches := quotedPattern.FindAllStringSubmatch(list, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names, nil
}

// ScanLiterals returns every scientific-notation literal of s in order.
func ScanLiterals(s string) []float64 {
	raw := literalPattern.FindAllString(s, -1)
	values := make([]float64, 0, len(raw))
	for _, lit := range raw {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			// Out of range literals still carry ±Inf or 0; keep them.
			var numErr *strconv.NumError
			if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
				continue
			}
		}
		values = append(values, v)
	}
	return values
}
