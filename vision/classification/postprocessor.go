package classification

import "strings"

// Postprocessor defines a function that filters/modifies on an incoming array of Classifications.
type Postprocessor func(Classifications) Classifications

// NewScoreFilter returns a function that filters out classifications below a certain confidence
// score. A non-positive threshold keeps everything.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in Classifications) Classifications {
		if conf <= 0 {
			return in
		}
		out := make(Classifications, 0, len(in))
		for _, c := range in {
			if c.Score() >= conf {
				out = append(out, c)
			}
		}
		return out
	}
}

// NewLabelFilter returns a function that filters out classifications without one of the chosen
// labels, compared case insensitively. Does not filter when labels is empty.
func NewLabelFilter(labels []string) Postprocessor {
	keep := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			keep[strings.ToLower(l)] = struct{}{}
		}
	}
	return func(in Classifications) Classifications {
		if len(keep) < 1 {
			return in
		}
		out := make(Classifications, 0, len(in))
		for _, c := range in {
			if _, ok := keep[strings.ToLower(c.Label())]; ok {
				out = append(out, c)
			}
		}
		return out
	}
}

// Chain applies the postprocessors in order.
func Chain(pps ...Postprocessor) Postprocessor {
	return func(in Classifications) Classifications {
		for _, pp := range pps {
			if pp != nil {
				in = pp(in)
			}
		}
		return in
	}
}
