package classifier

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/internal/query"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	// generalConfidence is reported when no intent pattern matched
	generalConfidence = 0.3
	// identifierConfidence is reported when only an identifier-shaped entity hints at a lookup
	identifierConfidence = 0.6
	// patternBonus is added for every further pattern of the winning intent that matched
	patternBonus  = 0.05
	maxConfidence = 0.95
	maxExpansions = 20
)

// intentRule is one intent with the patterns that signal it. Rules are tried
// in order and the first with any match wins.
type intentRule struct {
	intent     types.QueryIntent
	confidence float64
	patterns   []*regexp.Regexp
	// vocabulary words describe the intent itself and are never entities
	vocabulary []string
}

// Classifier assigns a query one of a fixed set of intents, extracts the
// entities it names, and expands them through learned domain knowledge
type Classifier struct {
	rules        []intentRule
	identifierRe *regexp.Regexp
	quotedRe     *regexp.Regexp
	vocabulary   map[string]bool
	knowledge    *domain.Knowledge
}

// New creates a classifier. Knowledge may be nil, in which case entities are
// not expanded and no modules are suggested.
func New(knowledge *domain.Knowledge) *Classifier {
	c := &Classifier{
		rules:     defaultRules(),
		knowledge: knowledge,
		quotedRe:  regexp.MustCompile("\"([^\"]+)\"|`([^`]+)`|'([^']+)'"),
		identifierRe: regexp.MustCompile(
			`\b[a-z]+[A-Z][A-Za-z0-9]*\b|` + // camelCase
				`\b[A-Za-z0-9]+(?:_[A-Za-z0-9]+)+\b|` + // snake_case
				`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b|` + // PascalCase
				`[A-Za-z]+\^[A-Za-z0-9^]+|` + // TAL
				`\b[A-Z0-9]+(?:-[A-Z0-9]+)+\b`), // COBOL
		vocabulary: make(map[string]bool),
	}
	for _, r := range c.rules {
		for _, w := range r.vocabulary {
			c.vocabulary[w] = true
		}
	}
	return c
}

// WithKnowledge returns a classifier sharing c's rules but expanding through k
func (c *Classifier) WithKnowledge(k *domain.Knowledge) *Classifier {
	cp := *c
	cp.knowledge = k
	return &cp
}

func defaultRules() []intentRule {
	re := regexp.MustCompile
	return []intentRule{
		{
			intent:     types.IntentCallGraph,
			confidence: 0.9,
			patterns: []*regexp.Regexp{
				re(`\b(who|what|which)\b.*\bcalls?\b`),
				re(`\bcall(er|ee)s?\b`),
				re(`\bcalled\s+(by|from)\b`),
				re(`\binvok(e|es|ed|ing)\b`),
				re(`\bcall\s+graph\b`),
				re(`\bdepends?\s+on\b`),
			},
			vocabulary: []string{"calls", "call", "caller", "callers", "callee", "callees", "invokes", "invoke", "invoked", "graph", "depends", "depend"},
		},
		{
			intent:     types.IntentFlowTrace,
			confidence: 0.85,
			patterns: []*regexp.Regexp{
				re(`\bflows?\b`),
				re(`\btrace\b`),
				re(`\bpath\s+(from|to)\b`),
				re(`\bwhat\s+happens\s+(when|after|before|if)\b`),
				re(`\bstep\s+by\s+step\b`),
				re(`\bsequence\b`),
				re(`\blifecycle\b`),
			},
			vocabulary: []string{"flow", "flows", "trace", "sequence", "lifecycle", "step", "happens"},
		},
		{
			intent:     types.IntentFileListing,
			confidence: 0.85,
			patterns: []*regexp.Regexp{
				re(`\b(list|show)\s+(me\s+)?(all\s+)?(the\s+)?files\b`),
				re(`\bwhich\s+files\b`),
				re(`\bfiles?\s+(in|under|for|related)\b`),
				re(`\b(directory|directories|folder|folders)\b`),
			},
			vocabulary: []string{"files", "directory", "directories", "folder", "folders", "related"},
		},
		{
			intent:     types.IntentStructureLookup,
			confidence: 0.8,
			patterns: []*regexp.Regexp{
				re(`\b(struct|structs|structure|record|records|layout|fields?|schema)\b`),
				re(`\b(class|type)\s+(of|for|definition)\b`),
				re(`\b(definition|declaration|declared)\b`),
			},
			vocabulary: []string{"struct", "structs", "structure", "record", "records", "layout", "field", "fields", "schema", "definition", "declaration", "declared", "type"},
		},
		{
			intent:     types.IntentCrossModule,
			confidence: 0.75,
			patterns: []*regexp.Regexp{
				re(`\bacross\b`),
				re(`\bbetween\b.+\band\b`),
				re(`\binteract(s|ion|ions)?\b`),
				re(`\bmodules\b`),
				re(`\bintegrat(e|es|ion)\b`),
			},
			vocabulary: []string{"across", "between", "interact", "interacts", "interaction", "interactions", "modules", "integration"},
		},
		{
			intent:     types.IntentImplementation,
			confidence: 0.8,
			patterns: []*regexp.Regexp{
				re(`\bhow\s+(is|are|does|do)\b.+\b(implemented|computed|calculated|handled|built|done|work|works|created|stored|parsed)\b`),
				re(`\bimplement(s|ed|ation)?\b`),
				re(`\bwhere\s+(is|are)\b`),
				re(`\bcode\s+(for|that)\b`),
			},
			vocabulary: []string{"implemented", "implementation", "implement", "implements"},
		},
		{
			intent:     types.IntentConceptExplanation,
			confidence: 0.7,
			patterns: []*regexp.Regexp{
				re(`^\s*(what\s+is|what\s+are|what's|explain|describe|tell\s+me\s+about|overview\s+of)\b`),
				re(`\bwhy\b`),
				re(`\b(purpose|meaning|concept|overview)\b`),
			},
			vocabulary: []string{"purpose", "meaning", "concept", "overview"},
		},
	}
}

// Classify returns a fresh classification for q
func (c *Classifier) Classify(q string) types.Classification {
	lower := strings.ToLower(q)
	result := types.Classification{
		Intent:         types.IntentGeneral,
		Confidence:     generalConfidence,
		Entities:       []string{},
		ExpandedTerms:  []string{},
		RelatedModules: []string{},
	}
	if strings.TrimSpace(q) == "" {
		return result
	}

	for _, r := range c.rules {
		hits := 0
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		result.Intent = r.intent
		result.Confidence = r.confidence + patternBonus*float64(hits-1)
		if result.Confidence > maxConfidence {
			result.Confidence = maxConfidence
		}
		break
	}

	result.Entities = c.entities(q)
	if result.Intent == types.IntentGeneral && c.identifierRe.MatchString(q) {
		result.Intent = types.IntentImplementation
		result.Confidence = identifierConfidence
	}

	result.ExpandedTerms, result.RelatedModules = c.expand(q, result.Entities)
	return result
}

// entities lists quoted phrases, identifier-shaped tokens, then the remaining
// query terms that are neither stop words nor intent vocabulary
func (c *Classifier) entities(q string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(e string) {
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, e)
	}

	for _, m := range c.quotedRe.FindAllStringSubmatch(q, -1) {
		for _, g := range m[1:] {
			add(strings.TrimSpace(g))
		}
	}
	for _, id := range c.identifierRe.FindAllString(q, -1) {
		add(id)
	}
	for _, t := range query.Terms(q) {
		lower := strings.ToLower(t)
		if query.IsStopWord(lower) || c.vocabulary[lower] {
			continue
		}
		if _, isAction := query.ActionBase(lower); isAction {
			continue
		}
		add(t)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// expand gathers identifier parts, action compounds and domain cluster terms
// for the entities, plus the modules the entities map to
func (c *Classifier) expand(q string, entities []string) ([]string, []string) {
	terms := make(map[string]struct{})
	modules := make(map[string]struct{})
	entitySet := make(map[string]bool, len(entities))
	for _, e := range entities {
		entitySet[strings.ToLower(e)] = true
	}
	add := func(t string) {
		t = strings.ToLower(t)
		if len(t) >= 2 && !entitySet[t] {
			terms[t] = struct{}{}
		}
	}

	for _, e := range entities {
		parts := inverted.SplitIdentifier(e)
		if len(parts) > 1 {
			for _, p := range parts {
				if !query.IsStopWord(p) {
					add(p)
				}
			}
		}
		if singular := query.Singular(strings.ToLower(e)); singular != strings.ToLower(e) {
			add(singular)
		}
	}
	for _, compound := range query.Expand(entities, query.Actions(q)) {
		add(compound)
	}

	if c.knowledge != nil {
		for _, e := range entities {
			for _, candidate := range []string{strings.ToLower(e), query.Singular(strings.ToLower(e))} {
				for _, related := range c.knowledge.Expand(candidate) {
					add(related)
				}
				for _, dir := range c.knowledge.ModulesFor(candidate) {
					modules[dir] = struct{}{}
				}
			}
		}
	}

	expanded := sortedKeys(terms)
	if len(expanded) > maxExpansions {
		expanded = expanded[:maxExpansions]
	}
	return expanded, sortedKeys(modules)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
