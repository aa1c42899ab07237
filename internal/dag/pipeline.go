package dag

import (
	"regexp"
	"strings"

	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// BuildPipelineGraph derives a dependency graph from a pipeline's
// sources and stages: every source is a root node, and a stage depends
// on every other declared source or stage name (earlier or later) that
// appears as a token in its query text. The result mirrors the declared level structure, but
// recomputing it from the query text lets `aqueducts dag` flag a stage
// that reaches outside its declared level.
func BuildPipelineGraph(p aqmodel.Pipeline) *Graph {
	g := NewGraph()

	for _, src := range p.Sources {
		g.AddNode(src.Name)
	}

	var allStages []aqmodel.Stage
	for _, level := range p.Stages {
		for _, s := range level {
			g.AddNode(s.Name)
			allStages = append(allStages, s)
		}
	}

	known := make(map[string]bool, len(p.Sources)+len(allStages))
	for _, src := range p.Sources {
		known[src.Name] = true
	}
	for _, s := range allStages {
		known[s.Name] = true
	}

	for _, s := range allStages {
		for _, ref := range referencedNames(s.Query) {
			if ref == s.Name || !known[ref] {
				continue
			}
			_ = g.AddEdge(ref, s.Name)
		}
	}

	return g
}

// ForwardReference names a stage whose query mentions another
// declared stage's name before that name is available: either a
// sibling in the same concurrent level, or a stage further down the
// pipeline. Since stages within a level run concurrently, referencing
// a same-level sibling is no safer than referencing a later one.
type ForwardReference struct {
	Stage      string
	References string
}

// ForwardReferences walks a pipeline's declared levels in order and
// reports every stage query that names another stage not yet
// registered by an earlier level, the validation `aqueducts dag`
// performs that the declared level structure alone doesn't catch.
func ForwardReferences(p aqmodel.Pipeline) []ForwardReference {
	stageNames := make(map[string]bool)
	for _, level := range p.Stages {
		for _, s := range level {
			stageNames[s.Name] = true
		}
	}

	known := make(map[string]bool, len(p.Sources))
	for _, src := range p.Sources {
		known[src.Name] = true
	}

	var out []ForwardReference
	for _, level := range p.Stages {
		for _, s := range level {
			for _, ref := range referencedNames(s.Query) {
				if ref == s.Name || known[ref] || !stageNames[ref] {
					continue
				}
				out = append(out, ForwardReference{Stage: s.Name, References: ref})
			}
		}

		for _, s := range level {
			known[s.Name] = true
		}
	}
	return out
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// referencedNames extracts every bare identifier token from a SQL
// query, a coarse over-approximation (it also matches column names and
// keywords) that is filtered down to known source/stage names by the
// caller. This deliberately favours false positives over false
// negatives: a missed dependency would silently schedule a stage too
// early.
func referencedNames(query string) []string {
	matches := identPattern.FindAllString(query, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		lower := strings.ToLower(m)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, m)
	}
	return out
}
