// Package fontdata provides the binary table reader shared by the Graphite
// table packages (silf, glat, code): bounds-checked big-endian access to raw
// font-table bytes, plus an accumulate-don't-panic error/warning log used
// while a Face is being built.
package fontdata

import "fmt"

// Severity classifies a Fault encountered while reading a table.
type Severity int

const (
	// SeverityCritical makes the owning table (or the whole face) unusable.
	SeverityCritical Severity = iota
	// SeverityMajor affects functionality but does not prevent use.
	SeverityMajor
	// SeverityMinor can safely be ignored in most cases.
	SeverityMinor
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityMajor:
		return "MAJOR"
	case SeverityMinor:
		return "MINOR"
	default:
		return "UNKNOWN"
	}
}

// Fault records one malformed-font problem found while validating a table.
// Faults are accumulated, not returned as the first error seen, so that
// callers can inspect everything wrong with a font in one pass.
type Fault struct {
	Table    Tag
	Section  string
	Issue    string
	Severity Severity
	Offset   int
}

func (f Fault) Error() string {
	if f.Offset > 0 {
		return fmt.Sprintf("[%s] %s/%s at offset %d: %s", f.Severity, f.Table, f.Section, f.Offset, f.Issue)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", f.Severity, f.Table, f.Section, f.Issue)
}

// Faults accumulates Fault values produced while reading one or more tables.
type Faults struct {
	items []Fault
}

// Add records a fault.
func (fs *Faults) Add(table Tag, section, issue string, sev Severity, offset int) {
	fs.items = append(fs.items, Fault{Table: table, Section: section, Issue: issue, Severity: sev, Offset: offset})
}

// All returns every recorded fault.
func (fs *Faults) All() []Fault {
	if fs.items == nil {
		return []Fault{}
	}
	return fs.items
}

// HasCritical reports whether any accumulated fault is SeverityCritical.
func (fs *Faults) HasCritical() bool {
	for _, f := range fs.items {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Critical returns the subset of faults that are SeverityCritical.
func (fs *Faults) Critical() []Fault {
	out := make([]Fault, 0)
	for _, f := range fs.items {
		if f.Severity == SeverityCritical {
			out = append(out, f)
		}
	}
	return out
}
