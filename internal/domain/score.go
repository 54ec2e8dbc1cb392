package domain

// Score is the feedback-derived relevance of a result for a query.
//
// Value is always in [0,1]. Known is false when no feedback history exists; in
// that case Value is the neutral default 0, which sorts the same as a fully
// negative history but must not be read as one.
type Score struct {
	Value float64
	Known bool
}

// NoHistory is the score of a result nobody has given feedback on.
var NoHistory = Score{Value: 0, Known: false}

// ScoreFromFeedback averages raw feedback values and rescales the mean from
// [-1,1] into [0,1]. An empty history yields NoHistory.
func ScoreFromFeedback(values []FeedbackValue) Score {
	if len(values) == 0 {
		return NoHistory
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	value := (mean + 1) / 2
	switch {
	case value < 0:
		value = 0
	case value > 1:
		value = 1
	}
	return Score{Value: value, Known: true}
}
