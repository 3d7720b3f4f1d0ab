// Package classification implements the ranking of model scores into labeled classifications.
package classification

import (
	"fmt"
	"sort"
)

// Classification is a label with a confidence score.
type Classification interface {
	Score() float64
	Label() string
}

// Classifications is a list of classifications, usually ordered by descending score.
type Classifications []Classification

type classification struct {
	label string
	score float64
	index int
}

// NewClassification creates a simple 2D classification.
func NewClassification(score float64, label string) Classification {
	return &classification{label: label, score: score, index: -1}
}

func newIndexedClassification(score float64, label string, index int) Classification {
	return &classification{label: label, score: score, index: index}
}

// Score returns a confidence score of the classification between 0.0 and 1.0.
func (c *classification) Score() float64 {
	return c.score
}

// Label returns the class label of the object in the classification.
func (c *classification) Label() string {
	return c.label
}

func (c *classification) String() string {
	return fmt.Sprintf("%08.6f: %s", c.score, c.label)
}

// IndexOf returns the model output index a ranked classification came from, or -1.
func IndexOf(c Classification) int {
	if ic, ok := c.(*classification); ok {
		return ic.index
	}
	return -1
}

// TopN finds the N Classifications with the highest confidence scores. Equal scores keep
// their current relative order.
func (cc Classifications) TopN(n int) Classifications {
	sorted := make(Classifications, len(cc))
	copy(sorted, cc)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score() > sorted[j].Score()
	})
	if n < 0 || n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Labels returns the labels in order.
func (cc Classifications) Labels() []string {
	out := make([]string, 0, len(cc))
	for _, c := range cc {
		out = append(out, c.Label())
	}
	return out
}
