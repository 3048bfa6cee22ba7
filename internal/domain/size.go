package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a byte count with human-readable parsing and formatting.
// Units are binary (1 KB = 1024 B).
type ByteSize int64

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib

	// maxReadableRate caps rate rendering at 1 PB/s; anything beyond is
	// treated as garbage from the client rather than formatted.
	maxReadableRate = 1024 * int64(tib)
)

var sizePattern = regexp.MustCompile(`(?i)^\s*([\d.]+)\s*(B|KB|MB|GB|TB)\s*$`)

var sizeMultipliers = map[string]int64{
	"B":  1,
	"KB": kib,
	"MB": mib,
	"GB": gib,
	"TB": tib,
}

// ParseSize parses strings like "1.5 GB" or "750MB".
func ParseSize(raw string) (ByteSize, error) {
	match := sizePattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, fmt.Errorf("%w: invalid size %q, expected a value like \"1.5 GB\"", ErrValidation, raw)
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid size value %q", ErrValidation, match[1])
	}

	unit := strings.ToUpper(match[2])
	return ByteSize(value * float64(sizeMultipliers[unit])), nil
}

// FormatSize renders a byte count with the largest unit that keeps the
// value under 1024, to two decimal places. Plain bytes stay integral.
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	size := float64(bytes)
	unit := "B"
	for _, candidate := range []string{"B", "KB", "MB", "GB", "TB"} {
		unit = candidate
		if size < 1024 || unit == "TB" {
			break
		}
		size /= 1024
	}

	if unit == "B" {
		return fmt.Sprintf("%d B", int64(size))
	}
	return fmt.Sprintf("%.2f %s", size, unit)
}

// FormatRate renders a transfer rate. Negative values and values above
// 1 PB/s are unreadable and yield ok=false instead of an error.
func FormatRate(bytesPerSecond int64) (string, bool) {
	if bytesPerSecond < 0 || bytesPerSecond > maxReadableRate {
		return "", false
	}
	return FormatSize(bytesPerSecond) + "/s", true
}

func (s ByteSize) String() string { return FormatSize(int64(s)) }
