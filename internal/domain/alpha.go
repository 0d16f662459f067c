package domain

// Sentiment is the binary market read extracted from chat text
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether the sentiment is one of the two accepted values.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNegative
}

// AlphaCandidate is a token signal extracted from one closed window. It lives
// only for the duration of a single pipeline run.
type AlphaCandidate struct {
	Token      string    `json:"token"`
	Texts      []string  `json:"texts"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
}
