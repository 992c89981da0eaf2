// Package report parses and rewrites the living baseline report. The report
// is a Markdown document in which every tracked metric owns one section under
// a "### <letter>. <Metric Name>" heading. Rewrites are byte-isolated: only
// the target section's body changes, every other byte of the document is
// preserved exactly.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

var (
	// ErrSectionNotFound is returned when the report has no heading for the
	// metric. The pipeline skips the metric and records the miss.
	ErrSectionNotFound = errors.New("metric section not found in report")

	// ErrDuplicateSection is returned when more than one heading matches a
	// metric. A rewrite would be ambiguous, so the metric is refused.
	ErrDuplicateSection = errors.New("metric has multiple sections in report")
)

// nextHeading marks the end of a section body: any heading of level three or
// shallower starts the next section.
var nextHeading = regexp.MustCompile(`(?m)^#{1,3}\s`)

// Section is one metric's slice of the report.
type Section struct {
	MetricName string
	Heading    string // the full heading line, without its trailing newline
	Body       string // everything between the heading and the next section

	bodyStart int // byte offset of Body within the document
	bodyEnd   int
}

// headingPattern compiles the regular expression locating the metric's
// heading. The default shape is "### <letter>. <Metric Name>", with the
// metric name matched case-insensitively; a metric may override it.
func headingPattern(metric models.Metric) (*regexp.Regexp, error) {
	if metric.HeadingPattern != "" {
		re, err := regexp.Compile("(?m)" + metric.HeadingPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid heading pattern for metric '%s': %w", metric.Name, err)
		}
		return re, nil
	}
	return regexp.Compile(`(?mi)^###\s*[A-Z]\.\s+` + regexp.QuoteMeta(metric.Name) + `\s*$`)
}

// FindSection locates the metric's section in the report content.
func FindSection(content string, metric models.Metric) (Section, error) {
	re, err := headingPattern(metric)
	if err != nil {
		return Section{}, err
	}

	locs := re.FindAllStringIndex(content, 2)
	switch len(locs) {
	case 0:
		return Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, metric.Name)
	case 1:
	default:
		return Section{}, fmt.Errorf("%w: %s", ErrDuplicateSection, metric.Name)
	}

	headingStart, headingEnd := locs[0][0], locs[0][1]

	// The body starts after the heading's newline and runs to the next
	// heading of level three or shallower, or to the end of the document.
	bodyStart := headingEnd
	if bodyStart < len(content) && content[bodyStart] == '\n' {
		bodyStart++
	}
	bodyEnd := len(content)
	if next := nextHeading.FindStringIndex(content[bodyStart:]); next != nil {
		bodyEnd = bodyStart + next[0]
	}

	return Section{
		MetricName: metric.Name,
		// The greedy \s* in the heading pattern may take the line's
		// newline with it, so trim trailing whitespace off the match.
		Heading: strings.TrimRight(content[headingStart:headingEnd], " \t\n"),
		Body:       content[bodyStart:bodyEnd],
		bodyStart:  bodyStart,
		bodyEnd:    bodyEnd,
	}, nil
}

// ReplaceSection returns the report content with the metric's section body
// replaced by newBody. The replacement is normalized to end with a single
// blank line so the following heading stays visually separated. All bytes
// outside the section body are preserved exactly.
func ReplaceSection(content string, metric models.Metric, newBody string) (string, error) {
	section, err := FindSection(content, metric)
	if err != nil {
		return "", err
	}

	replacement := NormalizeBody(newBody)
	if section.Body == replacement {
		return content, nil
	}
	return content[:section.bodyStart] + replacement + content[section.bodyEnd:], nil
}

// NormalizeBody trims the body and terminates it with a blank line, the
// canonical shape of a section body in the report.
func NormalizeBody(body string) string {
	return strings.TrimSpace(body) + "\n\n"
}
