package dataprocessing

import (
	"strings"

	"trialmerge/pkg/contracts/domain"
)

// MetadataBlock holds the label/value pairs above the rounds table.
type MetadataBlock struct {
	// Item and SystemType are read positionally from column 1 of lines 0 and 1.
	Item       string
	SystemType string

	values map[string]string
	labels []string
}

// ParseMetadata reads lines as two-column (label, value) pairs. Lines with a
// blank label are skipped and a repeated label keeps its last value.
func ParseMetadata(lines []string) *MetadataBlock {
	m := &MetadataBlock{values: make(map[string]string)}

	for i, line := range lines {
		fields := splitRecord(line)
		if i == 0 {
			m.Item = cell(fields, 1)
		}
		if i == 1 {
			m.SystemType = cell(fields, 1)
		}

		label := cell(fields, 0)
		if label == "" {
			continue
		}
		key := normalizeLabel(label)
		if _, seen := m.values[key]; !seen {
			m.labels = append(m.labels, label)
		}
		m.values[key] = cell(fields, 1)
	}
	return m
}

// Value returns the raw text stored under label.
func (m *MetadataBlock) Value(label string) (string, bool) {
	v, ok := m.values[normalizeLabel(label)]
	return v, ok
}

// Number returns the numeric value stored under label, or nil when the label
// is absent or its value is not a number.
func (m *MetadataBlock) Number(label string) *float64 {
	v, ok := m.Value(label)
	if !ok {
		return nil
	}
	n, _ := parseNullable(v)
	return n
}

// Labels returns the distinct labels in first-seen order.
func (m *MetadataBlock) Labels() []string {
	return m.labels
}

// GroundTruth resolves the three GT fields broadcast onto every record.
func (m *MetadataBlock) GroundTruth() (objects, defects, grandTotal *float64) {
	return m.Number(domain.MetaNumberOfObjects),
		m.Number(domain.MetaNumberOfDefects),
		m.Number(domain.MetaGrandTotalCount)
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
