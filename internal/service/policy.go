package service

// Policy collects every heuristic threshold used by the matcher, checker and
// analyzer. Tuning happens here or through the policy.* config keys.
type Policy struct {
	// Geographic matching scores and acceptance
	ExactScore      float64 `mapstructure:"exact_score" yaml:"exact_score"`
	SubstringScore  float64 `mapstructure:"substring_score" yaml:"substring_score"`
	TokenOverlapMin float64 `mapstructure:"token_overlap_min" yaml:"token_overlap_min"`
	MatchThreshold  float64 `mapstructure:"match_threshold" yaml:"match_threshold"`

	// Minimum match score for a district to replace a state in a rewrite
	RewriteThreshold float64 `mapstructure:"rewrite_threshold" yaml:"rewrite_threshold"`

	// Rainfall buckets for recommendations (mm/year)
	LowRainfallMM  float64 `mapstructure:"low_rainfall_mm" yaml:"low_rainfall_mm"`
	HighRainfallMM float64 `mapstructure:"high_rainfall_mm" yaml:"high_rainfall_mm"`

	DefaultTopN          int `mapstructure:"default_top_n" yaml:"default_top_n"`
	MaxRewrites          int `mapstructure:"max_rewrites" yaml:"max_rewrites"`
	DefaultRelativeYears int `mapstructure:"default_relative_years" yaml:"default_relative_years"`
}

// DefaultPolicy returns the stock thresholds
func DefaultPolicy() Policy {
	return Policy{
		ExactScore:           1.0,
		SubstringScore:       0.8,
		TokenOverlapMin:      0.5,
		MatchThreshold:       0.5,
		RewriteThreshold:     0.6,
		LowRainfallMM:        800,
		HighRainfallMM:       1500,
		DefaultTopN:          10,
		MaxRewrites:          3,
		DefaultRelativeYears: 10,
	}
}

// withDefaults fills zero fields from DefaultPolicy
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ExactScore == 0 {
		p.ExactScore = d.ExactScore
	}
	if p.SubstringScore == 0 {
		p.SubstringScore = d.SubstringScore
	}
	if p.TokenOverlapMin == 0 {
		p.TokenOverlapMin = d.TokenOverlapMin
	}
	if p.MatchThreshold == 0 {
		p.MatchThreshold = d.MatchThreshold
	}
	if p.RewriteThreshold == 0 {
		p.RewriteThreshold = d.RewriteThreshold
	}
	if p.LowRainfallMM == 0 {
		p.LowRainfallMM = d.LowRainfallMM
	}
	if p.HighRainfallMM == 0 {
		p.HighRainfallMM = d.HighRainfallMM
	}
	if p.DefaultTopN <= 0 {
		p.DefaultTopN = d.DefaultTopN
	}
	if p.MaxRewrites <= 0 {
		p.MaxRewrites = d.MaxRewrites
	}
	if p.DefaultRelativeYears <= 0 {
		p.DefaultRelativeYears = d.DefaultRelativeYears
	}
	return p
}
