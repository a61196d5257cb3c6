package memory

import "github.com/m-mizutani/goerr/v2"

const (
	// DefaultVectorWeight and DefaultKeywordWeight control how the two
	// retrieval signals are combined. They must sum to 1.
	DefaultVectorWeight  = 0.6
	DefaultKeywordWeight = 0.4

	// DefaultOversample is the multiplier applied to k when collecting
	// vector candidates, so that keyword-only hits can still surface.
	DefaultOversample = 2
)

// Config holds the tunables of hybrid search
type Config struct {
	VectorWeight  float64
	KeywordWeight float64
	Oversample    int
}

// DefaultConfig returns the documented default tuning
func DefaultConfig() Config {
	return Config{
		VectorWeight:  DefaultVectorWeight,
		KeywordWeight: DefaultKeywordWeight,
		Oversample:    DefaultOversample,
	}
}

// Validate checks that weights are in range and sum to 1
func (c Config) Validate() error {
	if c.VectorWeight < 0 || c.VectorWeight > 1 {
		return goerr.New("vector weight out of range", goerr.V("weight", c.VectorWeight))
	}
	if c.KeywordWeight < 0 || c.KeywordWeight > 1 {
		return goerr.New("keyword weight out of range", goerr.V("weight", c.KeywordWeight))
	}
	const epsilon = 1e-9
	if diff := c.VectorWeight + c.KeywordWeight - 1; diff > epsilon || diff < -epsilon {
		return goerr.New("weights must sum to 1",
			goerr.V("vector", c.VectorWeight), goerr.V("keyword", c.KeywordWeight))
	}
	if c.Oversample < 1 {
		return goerr.New("oversample must be at least 1", goerr.V("oversample", c.Oversample))
	}
	return nil
}
