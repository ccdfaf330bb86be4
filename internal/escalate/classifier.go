// Package escalate decides whether a customer utterance needs a human
// supervisor, using categorized trigger phrases loaded from a CSV table.
package escalate

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Categories, in decision priority order. Frustration is special: a single
// hit is not enough to escalate.
const (
	CategoryDirectRequest = "direct_request"
	CategoryUrgency       = "urgency"
	CategoryComplexity    = "complexity"
	CategoryFrustration   = "frustration"
)

// ReasonFrustration is the reason reported when two or more distinct
// frustration phrases are found in one utterance.
const ReasonFrustration = "multiple_frustration_indicators"

// Classifier matches utterances against trigger phrases. A disabled
// classifier (failed load) never escalates. Classifier is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	directRequest *regexp.Regexp
	urgency       *regexp.Regexp
	complexity    *regexp.Regexp
	frustration   *regexp.Regexp
}

// Load builds a Classifier from a CSV file with a phrase,category header
// row. An unreadable file degrades to a disabled classifier with a logged
// warning rather than an error: a broken phrase table must not take the
// agent down.
func Load(csvPath string) *Classifier {
	f, err := os.Open(csvPath)
	if err != nil {
		slog.Warn("escalation phrases unavailable, classifier disabled", "path", csvPath, "error", err)
		return &Classifier{}
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		slog.Warn("escalation phrases unreadable, classifier disabled", "path", csvPath, "error", err)
		return &Classifier{}
	}
	return c
}

// Parse reads phrase,category rows and compiles the per-category matchers.
// Rows with unknown categories are ignored, matching the phrase table's
// forgiving format.
func Parse(r io.Reader) (*Classifier, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read phrase table: %w", err)
	}
	if len(records) == 0 {
		return &Classifier{}, nil
	}

	header := records[0]
	phraseIdx, categoryIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "phrase":
			phraseIdx = i
		case "category":
			categoryIdx = i
		}
	}
	if phraseIdx < 0 || categoryIdx < 0 {
		return nil, fmt.Errorf("phrase table missing phrase/category columns: %v", header)
	}

	phrases := map[string][]string{
		CategoryDirectRequest: nil,
		CategoryUrgency:       nil,
		CategoryComplexity:    nil,
		CategoryFrustration:   nil,
	}
	for _, row := range records[1:] {
		if len(row) <= phraseIdx || len(row) <= categoryIdx {
			continue
		}
		phrase := strings.ToLower(strings.Trim(strings.TrimSpace(row[phraseIdx]), `"`))
		category := strings.TrimSpace(row[categoryIdx])
		if phrase == "" {
			continue
		}
		if _, ok := phrases[category]; ok {
			phrases[category] = append(phrases[category], phrase)
		}
	}

	return &Classifier{
		directRequest: compileAlternation(phrases[CategoryDirectRequest]),
		urgency:       compileAlternation(phrases[CategoryUrgency]),
		complexity:    compileAlternation(phrases[CategoryComplexity]),
		frustration:   compileAlternation(phrases[CategoryFrustration]),
	}, nil
}

// compileAlternation builds a case-insensitive whole-word matcher over the
// literal phrases. Substring hits inside other words do not count.
func compileAlternation(phrases []string) *regexp.Regexp {
	if len(phrases) == 0 {
		return nil
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Enabled reports whether any phrase matcher was loaded.
func (c *Classifier) Enabled() bool {
	return c.directRequest != nil || c.urgency != nil || c.complexity != nil || c.frustration != nil
}

// Classify checks text in strict priority order: direct request, urgency,
// complexity, then two or more frustration indicators. The first match
// wins; no scoring beyond order.
func (c *Classifier) Classify(text string) (bool, string) {
	if c.directRequest != nil && c.directRequest.MatchString(text) {
		return true, CategoryDirectRequest
	}
	if c.urgency != nil && c.urgency.MatchString(text) {
		return true, CategoryUrgency
	}
	if c.complexity != nil && c.complexity.MatchString(text) {
		return true, CategoryComplexity
	}
	// One frustration phrase is a mildly annoyed customer, not an
	// escalation.
	if c.frustration != nil && len(c.frustration.FindAllString(text, 2)) >= 2 {
		return true, ReasonFrustration
	}
	return false, ""
}
