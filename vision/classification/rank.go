package classification

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/camclassify/camclassify/ml"
)

// ErrLabelIndexOutOfRange is returned when a top ranked output index has no label.
var ErrLabelIndexOutOfRange = errors.New("label index out of range")

// quantizedScale maps a uint8 score onto [0, 1].
const quantizedScale = 255.0

// Rank selects the k highest scores of a model output vector and labels them. output is a
// *tensor.Dense or any numeric slice; it is read, never modified. Ties keep the lower index
// first. k <= 0 or k larger than the vector means every entry. Quantized scores are divided
// by 255, floating scores are reported as is. A tensor whose dtype disagrees with floating is
// rejected.
func Rank(output interface{}, labels []string, k int, floating bool) (Classifications, error) {
	if t, ok := output.(*tensor.Dense); ok {
		if t == nil {
			return nil, errors.New("cannot rank a nil output tensor")
		}
		if ml.IsFloating(t) != floating {
			return nil, errors.Errorf("output tensor is %v but floating=%t", t.Dtype(), floating)
		}
		output = t.Data()
	}
	scores, err := ml.ToFloat64s(output)
	if err != nil {
		return nil, errors.Wrap(err, "cannot rank model output")
	}
	if len(scores) == 0 {
		return nil, errors.New("cannot rank an empty model output")
	}
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	out := make(Classifications, 0, k)
	for _, idx := range order[:k] {
		if idx >= len(labels) {
			return nil, errors.Wrapf(ErrLabelIndexOutOfRange, "index %d with %d labels", idx, len(labels))
		}
		score := scores[idx]
		if !floating {
			score /= quantizedScale
		}
		out = append(out, newIndexedClassification(score, labels[idx], idx))
	}
	return out, nil
}
