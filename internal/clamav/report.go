// Package clamav reads the text output of clamscan and clamdscan.
package clamav

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	foundSuffix = " FOUND"
	errorSuffix = " ERROR"
	dateLayout  = "2006:01:02 15:04:05"

	summaryMarker = "----------- SCAN SUMMARY -----------"
)

// Detection is one infected file reported by the scanner.
type Detection struct {
	Path      string
	Signature string
}

// ScanError is a file the scanner could not scan.
type ScanError struct {
	Path    string
	Message string
}

// Report is the parsed scanner output.
type Report struct {
	Detections []Detection
	Errors     []ScanError

	// Summary fields; zero when the output had no summary block.
	ScannedFiles  int
	InfectedFiles int
	StartTime     time.Time
	EndTime       time.Time
}

// ParseReport reads clamscan output. Result lines look like
//
//	/path/to/file: Win.Test.EICAR_HDB-1 FOUND
//
// and the optional summary carries "Start Date: 2024:01:15 10:30:00".
// A line ending in FOUND or ERROR is a result even when its path looks like
// a summary key; after the SCAN SUMMARY marker only summary entries are read.
// Summary dates have no zone and are read as local time. Lines that are
// neither results nor summary entries (OK lines, LibClamAV warnings) are
// ignored.
func ParseReport(r io.Reader) (*Report, error) {
	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	inSummary := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "LibClamAV ") {
			continue
		}
		if line == summaryMarker {
			inSummary = true
			continue
		}

		isResult := strings.HasSuffix(line, foundSuffix) || strings.HasSuffix(line, errorSuffix)
		if inSummary || !isResult {
			if key, value, ok := summaryField(line); ok {
				if err := report.applySummary(key, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
			continue
		}

		switch {
		case strings.HasSuffix(line, foundSuffix):
			path, sig, ok := splitResult(strings.TrimSuffix(line, foundSuffix))
			if !ok {
				return nil, fmt.Errorf("line %d: malformed detection %q", lineNo, line)
			}
			report.Detections = append(report.Detections, Detection{Path: path, Signature: sig})
		case strings.HasSuffix(line, errorSuffix):
			if path, msg, ok := splitResult(strings.TrimSuffix(line, errorSuffix)); ok {
				report.Errors = append(report.Errors, ScanError{Path: path, Message: msg})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading scan output: %w", err)
	}
	return report, nil
}

// splitResult splits "<path>: <text>" on the last separator, since paths
// may themselves contain ": ".
func splitResult(s string) (path, text string, ok bool) {
	i := strings.LastIndex(s, ": ")
	if i <= 0 {
		return "", "", false
	}
	path, text = s[:i], strings.TrimSpace(s[i+2:])
	if text == "" {
		return "", "", false
	}
	return path, text, true
}

var summaryKeys = map[string]bool{
	"Known viruses":       true,
	"Engine version":      true,
	"Scanned directories": true,
	"Scanned files":       true,
	"Infected files":      true,
	"Total errors":        true,
	"Data scanned":        true,
	"Data read":           true,
	"Time":                true,
	"Start Date":          true,
	"End Date":            true,
}

func summaryField(line string) (key, value string, ok bool) {
	key, value, found := strings.Cut(line, ":")
	if !found || !summaryKeys[key] {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func (r *Report) applySummary(key, value string) error {
	var err error
	switch key {
	case "Scanned files":
		r.ScannedFiles, err = strconv.Atoi(value)
	case "Infected files":
		r.InfectedFiles, err = strconv.Atoi(value)
	case "Start Date":
		r.StartTime, err = time.ParseInLocation(dateLayout, value, time.Local)
	case "End Date":
		r.EndTime, err = time.ParseInLocation(dateLayout, value, time.Local)
	}
	if err != nil {
		return fmt.Errorf("parsing %s %q: %w", key, value, err)
	}
	return nil
}
