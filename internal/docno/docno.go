// Package docno computes sequential inspection document numbers of the form
// PREFIX-YY-N, where YY is the two-digit year and N restarts at 1 every year.
package docno

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPrefix is the document number prefix used when none is configured
const DefaultPrefix = "AGI-APR"

// Policy generates document numbers for one prefix
type Policy struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewPolicy returns a policy for prefix. A trailing dash is optional.
func NewPolicy(prefix string) Policy {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "-")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Policy{
		prefix:  prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix+"-") + `(\d+)-(\d+)$`),
	}
}

// Prefix returns the configured prefix without trailing dash
func (p Policy) Prefix() string {
	return p.prefix
}

// YearSuffix returns the two-digit year of now
func YearSuffix(now time.Time) string {
	return fmt.Sprintf("%02d", now.Year()%100)
}

// YearPrefix returns the prefix shared by every number issued in now's year,
// e.g. "AGI-APR-25-".
func (p Policy) YearPrefix(now time.Time) string {
	return p.prefix + "-" + YearSuffix(now) + "-"
}

// Next returns the number following the highest sequence among existing
// numbers of now's year. Entries that do not match PREFIX-YY-N, belong to
// another year, or overflow are ignored.
func (p Policy) Next(now time.Time, existing []string) string {
	year := YearSuffix(now)
	max := 0
	for _, no := range existing {
		seq, ok := p.sequence(no, year)
		if ok && seq > max {
			max = seq
		}
	}
	return p.Format(now, max+1)
}

// Format builds the number for sequence seq in now's year
func (p Policy) Format(now time.Time, seq int) string {
	return p.YearPrefix(now) + strconv.Itoa(seq)
}

func (p Policy) sequence(no, year string) (int, bool) {
	m := p.pattern.FindStringSubmatch(no)
	if m == nil || m[1] != year {
		return 0, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return seq, true
}
