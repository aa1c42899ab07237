package stageexec

import (
	"context"
	"regexp"

	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// calculateTTL returns, for every stage, the index of the last level
// that still has a stage referencing it by name. A stage referenced by
// nothing later expires at its own level (index == its own level),
// meaning it is safe to deregister the moment that level finishes. The
// pipeline's final stage is excluded: the runner still needs its table
// after stage execution returns, to feed the destination writer.
func calculateTTL(pipeline aqmodel.Pipeline) map[string]int {
	ttl := make(map[string]int)
	finalStage, hasFinal := pipeline.LastStage()

	for levelIdx, level := range pipeline.Stages {
		for _, stage := range level {
			ttl[stage.Name] = levelIdx
		}
	}

	for levelIdx, level := range pipeline.Stages {
		for _, stage := range level {
			for name := range wordBoundaryNames(stage.Query) {
				if existing, ok := ttl[name]; ok && levelIdx > existing {
					ttl[name] = levelIdx
				}
			}
		}
	}

	if hasFinal {
		delete(ttl, finalStage.Name)
	}
	return ttl
}

var wordPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func wordBoundaryNames(query string) map[string]bool {
	names := make(map[string]bool)
	for _, m := range wordPattern.FindAllString(query, -1) {
		names[m] = true
	}
	return names
}

// deregisterExpired drops every stage table whose TTL expired at
// levelIdx, bounding memory for long pipelines instead of holding every
// stage table registered until the run ends.
func deregisterExpired(ctx context.Context, session *sqlctx.Session, ttl map[string]int, levelIdx int) {
	for name, expiry := range ttl {
		if expiry == levelIdx {
			_ = session.Deregister(ctx, name)
		}
	}
}
