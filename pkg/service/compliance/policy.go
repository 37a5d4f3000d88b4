package compliance

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed policy/submission.rego
var defaultPolicy string

const readinessQuery = "data.claimpilot.compliance.ready"

// loadPolicy prepares the readiness query from every .rego file in policyDir,
// or from the embedded policy when policyDir is empty or has no .rego files.
func loadPolicy(ctx context.Context, policyDir string) (*rego.PreparedEvalQuery, error) {
	modules := []func(*rego.Rego){}

	if policyDir != "" {
		files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", policyDir))
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
			}
			modules = append(modules, rego.Module(file, string(data)))
		}
	}

	if len(modules) == 0 {
		modules = append(modules, rego.Module("submission.rego", defaultPolicy))
	}

	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query(readinessQuery))
	options = append(options, modules...)

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare readiness policy", goerr.V("query", readinessQuery))
	}
	return &prepared, nil
}

// evalReady returns false when the policy leaves the rule undefined
func evalReady(ctx context.Context, q *rego.PreparedEvalQuery, input map[string]any) (bool, error) {
	rs, err := q.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate readiness policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	ready, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("readiness policy returned non-boolean", goerr.V("value", rs[0].Expressions[0].Value))
	}
	return ready, nil
}
