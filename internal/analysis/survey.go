package analysis

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/models"
)

// SurveyResult is one model's Jacobian summary.
type SurveyResult struct {
	Model       string
	Rows, Cols  int
	Evaluations int
	// MaxAbsError is NaN when the model has no analytic Jacobian.
	MaxAbsError float64
	Elapsed     time.Duration
	Err         error
}

// Survey differentiates every named problem with the same options, one
// goroutine per problem. Each problem is built fresh and owns its scope.
// Results keep the order of names.
func Survey(ctx context.Context, reg *models.Registry, names []string, opts fd.Options) []SurveyResult {
	results := make([]SurveyResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			results[idx] = surveyOne(ctx, reg, name, opts)
		}(i, name)
	}
	wg.Wait()

	return results
}

func surveyOne(ctx context.Context, reg *models.Registry, name string, opts fd.Options) (res SurveyResult) {
	res = SurveyResult{Model: name, MaxAbsError: math.NaN()}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	p, err := reg.Get(name, nil)
	if err != nil {
		res.Err = err
		return res
	}
	if res.Err = p.Baseline(ctx); res.Err != nil {
		return res
	}
	asm, err := p.Assemble(opts)
	if err != nil {
		res.Err = err
		return res
	}
	asm.FFDOrder = 0
	asm.SetIterName("survey")
	if res.Err = asm.CalcDerivatives(ctx, true, false, false); res.Err != nil {
		return res
	}

	dense := asm.Jacobian().ToDense()
	res.Rows, res.Cols = dense.Dims()
	res.Evaluations = asm.Engine().Evaluations()
	if p.Analytic != nil {
		exact, err := p.Analytic(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		res.MaxAbsError = MaxAbsDiff(dense, exact)
	}

	ctxlog.FromContext(ctx).Debug("surveyed model",
		"model", name, "rows", res.Rows, "cols", res.Cols, "evaluations", res.Evaluations)
	return res
}
