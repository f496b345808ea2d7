package service

import (
	"context"
	"time"

	"samarth-go/internal/metrics"
	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Engine runs the parse, check and analyze steps for one question
type Engine struct {
	Registry *state.Registry
	Parser   *QueryParser
	Checker  *FeasibilityChecker
	Analyzer *Analyzer

	// Answerer is optional
	Answerer Answerer
}

// NewEngine wires the core components over reg
func NewEngine(reg *state.Registry, policy Policy, clock clockwork.Clock) *Engine {
	return &Engine{
		Registry: reg,
		Parser:   NewQueryParser(reg),
		Checker:  NewFeasibilityChecker(reg, policy),
		Analyzer: NewAnalyzer(reg, policy, clock),
	}
}

// Check parses and checks a question without analysing it
func (e *Engine) Check(question string) (models.Intent, models.Verdict) {
	intent := e.Parser.Parse(question)
	metrics.QuestionsTotal.WithLabelValues(string(intent.Action)).Inc()
	verdict := e.Checker.Check(intent)
	metrics.ObserveVerdict(verdict)
	return intent, verdict
}

// Ask answers a question. An infeasible question is analysed through its
// first feasible rewrite only when useRewrite is set; otherwise Result is nil.
// The only error comes from the Answerer.
func (e *Engine) Ask(ctx context.Context, question string, useRewrite bool) (models.AskResponse, error) {
	intent, verdict := e.Check(question)
	resp := models.AskResponse{Intent: intent, Verdict: verdict}

	var target *models.Intent
	switch {
	case verdict.Feasible():
		target = &verdict.Intent
	case useRewrite:
		target = e.feasibleRewrite(verdict.Rewrites)
	}
	if target == nil {
		zap.L().Debug("question not analysed",
			zap.String("question", question),
			zap.String("reason", string(verdict.PrimaryReason())),
		)
		return resp, nil
	}

	start := time.Now()
	result := e.Analyzer.Analyze(*target)
	metrics.AnalysisDuration.WithLabelValues(string(result.Action)).Observe(time.Since(start).Seconds())

	resp.Analysed = target
	resp.Result = &result
	resp.Citations = models.FormatCitations(result.Citations)
	resp.ChartFamily = ChartFamily(result.Action)

	if e.Answerer != nil {
		answer, err := e.Answerer.Answer(ctx, question, result)
		if err != nil {
			return resp, eris.Wrap(err, "render answer")
		}
		resp.Answer = answer
	}
	return resp, nil
}

// feasibleRewrite re-checks each rewrite in order and returns the first
// feasible one with its years resolved.
func (e *Engine) feasibleRewrite(rewrites []models.Rewrite) *models.Intent {
	for i, rw := range rewrites {
		v := e.Checker.Check(rw.Intent)
		if v.Feasible() {
			return &v.Intent
		}
		zap.L().Debug("rewrite still infeasible",
			zap.Int("index", i),
			zap.String("question", rw.Question),
			zap.Any("reasons", v.Reasons),
		)
	}
	return nil
}
