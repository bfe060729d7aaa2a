package types

// QueryIntent is one of the fixed query intents
type QueryIntent string

const (
	IntentConceptExplanation QueryIntent = "concept_explanation"
	IntentCallGraph          QueryIntent = "call_graph"
	IntentFileListing        QueryIntent = "file_listing"
	IntentStructureLookup    QueryIntent = "structure_lookup"
	IntentFlowTrace          QueryIntent = "flow_trace"
	IntentImplementation     QueryIntent = "implementation_lookup"
	IntentCrossModule        QueryIntent = "cross_module"
	IntentGeneral            QueryIntent = "general"
)

// Classification is the per-query result of the classifier. It is never persisted.
type Classification struct {
	Intent         QueryIntent `json:"intent"`
	Confidence     float64     `json:"confidence"`
	Entities       []string    `json:"entities"`
	ExpandedTerms  []string    `json:"expanded_terms"`
	RelatedModules []string    `json:"related_modules"`
}
