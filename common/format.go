package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PrettyDuration prints a duration with at most three fractional digits.
type PrettyDuration time.Duration

func (d PrettyDuration) String() string {
	dur := time.Duration(d)
	switch abs := dur.Abs(); {
	case abs >= time.Second:
		return dur.Round(time.Millisecond).String()
	case abs >= time.Millisecond:
		return dur.Round(time.Microsecond).String()
	default:
		return dur.String()
	}
}

// PrettyAge prints the time elapsed since a moment, using up to three of
// the largest units that fit.
type PrettyAge time.Time

var ageUnits = []struct {
	size   time.Duration
	symbol string
}{
	{360 * 24 * time.Hour, "y"},
	{30 * 24 * time.Hour, "mo"},
	{7 * 24 * time.Hour, "w"},
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
}

func (t PrettyAge) String() string {
	diff := time.Since(time.Time(t))
	if diff < time.Second {
		return "0"
	}
	var b strings.Builder
	parts := 0
	for _, u := range ageUnits {
		if parts == 3 {
			break
		}
		if diff < u.size {
			continue
		}
		b.WriteString(strconv.FormatInt(int64(diff/u.size), 10))
		b.WriteString(u.symbol)
		diff %= u.size
		parts++
	}
	return b.String()
}

// StorageSize is a byte count printed in binary units.
type StorageSize float64

var sizeUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

func (s StorageSize) String() string {
	size, unit := float64(s), 0
	for size > 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
