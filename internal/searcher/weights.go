package searcher

// Weights are the scores each retrieval stage assigns. Stages run in a fixed
// priority order and the first stage to find an item fixes its score.
type Weights struct {
	Exact           float64 `json:"exact" mapstructure:"exact"`
	ExpandedExact   float64 `json:"expanded_exact" mapstructure:"expanded_exact"`
	ConceptFile     float64 `json:"concept_file" mapstructure:"concept_file"`
	FuzzyCap        float64 `json:"fuzzy_cap" mapstructure:"fuzzy_cap"`
	Directory       float64 `json:"directory" mapstructure:"directory"`
	SymbolText      float64 `json:"symbol_text" mapstructure:"symbol_text"`
	DirectorySymbol float64 `json:"directory_symbol" mapstructure:"directory_symbol"`
	Summary         float64 `json:"summary" mapstructure:"summary"`
	CodeText        float64 `json:"code_text" mapstructure:"code_text"`
	FileBody        float64 `json:"file_body" mapstructure:"file_body"`

	// FuzzyFloor drops fuzzy name matches scoring below it
	FuzzyFloor int `json:"fuzzy_floor" mapstructure:"fuzzy_floor"`
	// PullFactor scales the score of symbols pulled in with a keyword-matched file
	PullFactor float64 `json:"pull_factor" mapstructure:"pull_factor"`
}

// DefaultWeights returns the stock scoring table
func DefaultWeights() Weights {
	return Weights{
		Exact:           100,
		ExpandedExact:   98,
		ConceptFile:     95,
		FuzzyCap:        90,
		Directory:       85,
		SymbolText:      80,
		DirectorySymbol: 75,
		Summary:         75,
		CodeText:        70,
		FileBody:        60,
		FuzzyFloor:      30,
		PullFactor:      0.5,
	}
}

// withDefaults fills zero fields from DefaultWeights
func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&w.Exact, d.Exact)
	fill(&w.ExpandedExact, d.ExpandedExact)
	fill(&w.ConceptFile, d.ConceptFile)
	fill(&w.FuzzyCap, d.FuzzyCap)
	fill(&w.Directory, d.Directory)
	fill(&w.SymbolText, d.SymbolText)
	fill(&w.DirectorySymbol, d.DirectorySymbol)
	fill(&w.Summary, d.Summary)
	fill(&w.CodeText, d.CodeText)
	fill(&w.FileBody, d.FileBody)
	fill(&w.PullFactor, d.PullFactor)
	if w.FuzzyFloor <= 0 {
		w.FuzzyFloor = d.FuzzyFloor
	}
	return w
}
