package query

import "strings"

// actionVerbs maps inflected verbs found in queries to the base form used in
// function names
var actionVerbs = map[string]string{}

func init() {
	forms := map[string][]string{
		"build":     {"build", "builds", "built", "building", "builder"},
		"create":    {"create", "creates", "created", "creating", "creation"},
		"init":      {"init", "initialize", "initializes", "initialized", "initializing", "initialise", "initialization"},
		"process":   {"process", "processes", "processed", "processing"},
		"handle":    {"handle", "handles", "handled", "handling", "handler"},
		"parse":     {"parse", "parses", "parsed", "parsing", "parser"},
		"load":      {"load", "loads", "loaded", "loading"},
		"save":      {"save", "saves", "saved", "saving"},
		"read":      {"read", "reads", "reading"},
		"write":     {"write", "writes", "wrote", "written", "writing"},
		"compute":   {"compute", "computes", "computed", "computing", "computation"},
		"calc":      {"calculate", "calculates", "calculated", "calculating", "calculation", "calc"},
		"validate":  {"validate", "validates", "validated", "validating", "validation"},
		"update":    {"update", "updates", "updated", "updating"},
		"delete":    {"delete", "deletes", "deleted", "deleting", "deletion"},
		"send":      {"send", "sends", "sent", "sending"},
		"receive":   {"receive", "receives", "received", "receiving"},
		"open":      {"open", "opens", "opened", "opening"},
		"close":     {"close", "closes", "closed", "closing"},
		"start":     {"start", "starts", "started", "starting"},
		"stop":      {"stop", "stops", "stopped", "stopping"},
		"run":       {"run", "runs", "ran", "running"},
		"execute":   {"execute", "executes", "executed", "executing", "execution"},
		"register":  {"register", "registers", "registered", "registering", "registration"},
		"fetch":     {"fetch", "fetches", "fetched", "fetching"},
		"check":     {"check", "checks", "checked", "checking"},
		"convert":   {"convert", "converts", "converted", "converting", "conversion"},
		"format":    {"format", "formats", "formatted", "formatting"},
		"generate":  {"generate", "generates", "generated", "generating", "generation"},
		"encode":    {"encode", "encodes", "encoded", "encoding"},
		"decode":    {"decode", "decodes", "decoded", "decoding"},
		"allocate":  {"allocate", "allocates", "allocated", "allocating", "allocation"},
		"free":      {"free", "frees", "freed", "freeing"},
		"connect":   {"connect", "connects", "connected", "connecting", "connection"},
		"authorize": {"authorize", "authorizes", "authorized", "authorizing", "authorization"},
		"serialize": {"serialize", "serializes", "serialized", "serializing", "serialization"},
	}
	for base, list := range forms {
		for _, f := range list {
			actionVerbs[f] = base
		}
	}
}

// ActionBase returns the base form of an action verb and whether w is one
func ActionBase(w string) (string, bool) {
	base, ok := actionVerbs[strings.ToLower(w)]
	return base, ok
}

// Actions returns the base forms of the action verbs in a raw query, in order
func Actions(q string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(q)) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if base, ok := actionVerbs[w]; ok && !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	return out
}

// Expand synthesizes compound identifiers for every non-action term paired
// with every action: term_action, action_term, and the same without the
// underscore, all built from the singular term. Terms already present in
// terms are not repeated.
func Expand(terms, actions []string) []string {
	if len(actions) == 0 {
		return nil
	}
	existing := make(map[string]bool, len(terms))
	for _, t := range terms {
		existing[strings.ToLower(t)] = true
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !existing[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, t := range terms {
		lower := strings.ToLower(t)
		if _, isAction := actionVerbs[lower]; isAction {
			continue
		}
		s := Singular(lower)
		for _, a := range actions {
			add(s + "_" + a)
			add(a + "_" + s)
			add(s + a)
			add(a + s)
		}
	}
	return out
}
