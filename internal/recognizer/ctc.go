package recognizer

import "fmt"

// DecodeGreedy runs best-path CTC decoding over [1, T, C] logits or
// probabilities. Repeats are collapsed and blanks (class 0) dropped. It returns
// the class sequence and the mean of the per-step maxima that survived.
func DecodeGreedy(data []float32, shape []int64) ([]int, float64, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, 0, fmt.Errorf("unexpected recognition output shape %v", shape)
	}
	steps, classes := int(shape[1]), int(shape[2])
	if steps <= 0 || classes <= 0 || len(data) < steps*classes {
		return nil, 0, fmt.Errorf("recognition output shape %v does not match %d values", shape, len(data))
	}

	out := make([]int, 0, steps)
	var conf float64
	prev := -1
	for t := range steps {
		row := data[t*classes : (t+1)*classes]
		best, bestV := 0, row[0]
		for c := 1; c < classes; c++ {
			if row[c] > bestV {
				best, bestV = c, row[c]
			}
		}
		if best != 0 && best != prev {
			out = append(out, best)
			conf += float64(bestV)
		}
		prev = best
	}
	if len(out) == 0 {
		return out, 0, nil
	}
	return out, conf / float64(len(out)), nil
}
