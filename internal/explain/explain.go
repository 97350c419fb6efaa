// Package explain produces human-readable attributions for scoring
// decisions. Explanations are best-effort and never affect the decision:
// any internal failure yields an empty explanation, not an error.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// Explainer evaluates the configured key-factor rules and computes model
// contributions and feature importance.
type Explainer struct {
	cfg      domain.ExplainConfig
	programs []factorProgram
	logger   *slog.Logger
}

type factorProgram struct {
	id      string
	program cel.Program
}

// NewExplainer compiles the factor rules. A rule that fails to compile is
// skipped with a warning; the remaining rules still apply.
func NewExplainer(cfg domain.ExplainConfig, logger *slog.Logger) (*Explainer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("payment_method", cel.StringType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("merchant_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs := make([]factorProgram, 0, len(cfg.FactorRules))
	for _, rule := range cfg.FactorRules {
		program, err := compileFactor(env, rule)
		if err != nil {
			logger.Warn("factor rule skipped", "ruleId", rule.ID, "error", err)
			continue
		}
		programs = append(programs, factorProgram{id: rule.ID, program: program})
	}

	return &Explainer{cfg: cfg, programs: programs, logger: logger}, nil
}

func compileFactor(env *cel.Env, rule domain.FactorRule) (cel.Program, error) {
	ast, issues := env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile factor %s: %w", rule.ID, issues.Err())
	}
	if ast.OutputType() != cel.StringType {
		return nil, fmt.Errorf("factor %s: expression must return string, got %s", rule.ID, ast.OutputType())
	}
	return env.Program(ast)
}

// Explain builds the full explanation for one scored request.
func (e *Explainer) Explain(ctx context.Context, fv *domain.FeatureVector, results map[string]domain.ModelResult, weights map[string]float64) *domain.Explanation {
	return &domain.Explanation{
		ModelContributions: contributions(results, weights),
		KeyFactors:         e.keyFactors(fv),
		FeatureImportance:  e.featureImportance(fv),
	}
}

// contributions reports each successful model's share of the weighted
// average, regardless of the strategy that actually combined the scores.
// The weighted average is the one attribution a reader can verify by hand.
func contributions(results map[string]domain.ModelResult, weights map[string]float64) map[string]domain.ModelContribution {
	var weightSum float64
	for id := range results {
		weightSum += weights[id]
	}

	out := make(map[string]domain.ModelContribution, len(results))
	for id, r := range results {
		w := weights[id]
		norm := 0.0
		if weightSum > 0 {
			norm = w / weightSum
		}
		out[id] = domain.ModelContribution{
			Prediction:   r.Prediction,
			Weight:       norm,
			Contribution: norm * r.Prediction,
			Confidence:   r.Confidence,
		}
	}
	return out
}

// keyFactors evaluates the factor rules in configuration order. A non-empty
// string result is a triggered factor; evaluation errors skip the rule.
func (e *Explainer) keyFactors(fv *domain.FeatureVector) []string {
	activation := map[string]any{
		"amount":         fv.Amount,
		"hour":           int64(fv.HourOfDay),
		"payment_method": fv.PaymentMethod,
		"currency":       fv.Currency,
		"user_id":        fv.UserID,
		"merchant_id":    fv.MerchantID,
	}

	var factors []string
	for _, fp := range e.programs {
		out, _, err := fp.program.Eval(activation)
		if err != nil {
			e.logger.Debug("factor evaluation failed", "ruleId", fp.id, "error", err)
			continue
		}
		if s, ok := out.(types.String); ok && s != "" {
			factors = append(factors, string(s))
		}
	}
	return factors
}

// featureImportance lists the named features whose magnitude exceeds the
// threshold, strongest first, capped at the configured maximum.
func (e *Explainer) featureImportance(fv *domain.FeatureVector) []domain.FeatureImportance {
	threshold := e.cfg.ImportanceThreshold
	maxFeatures := e.cfg.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = 10
	}

	important := make([]domain.FeatureImportance, 0, len(fv.Named))
	for name, v := range fv.Named {
		if math.Abs(v) > threshold {
			important = append(important, domain.FeatureImportance{Name: name, Importance: v})
		}
	}
	sort.Slice(important, func(i, j int) bool {
		ai, aj := math.Abs(important[i].Importance), math.Abs(important[j].Importance)
		if ai != aj {
			return ai > aj
		}
		return important[i].Name < important[j].Name
	})
	if len(important) > maxFeatures {
		important = important[:maxFeatures]
	}
	return important
}
