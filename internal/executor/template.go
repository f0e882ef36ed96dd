package executor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// segmentPattern matches a single {{ expression }} segment.
var segmentPattern = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// TemplateProcessor expands {{ expression }} segments embedded in node
// inputs against a memory snapshot. Expansion is fail-open: any evaluation
// error logs a diagnostic and yields the original text unchanged.
type TemplateProcessor struct {
	evaluator *ConditionEvaluator
	logger    zerolog.Logger
}

// NewTemplateProcessor creates a processor sharing the evaluator's
// compiled-program cache.
func NewTemplateProcessor(evaluator *ConditionEvaluator, logger zerolog.Logger) *TemplateProcessor {
	return &TemplateProcessor{evaluator: evaluator, logger: logger}
}

// Expand processes a value recursively. Strings are expanded; maps and
// slices are walked; every other type is returned unchanged.
func (tp *TemplateProcessor) Expand(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		return tp.ExpandString(v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = tp.Expand(inner, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = tp.Expand(inner, vars)
		}
		return out
	default:
		return value
	}
}

// ExpandMap expands every entry of a node's input mapping.
func (tp *TemplateProcessor) ExpandMap(inputs map[string]any, vars map[string]any) map[string]any {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = tp.Expand(v, vars)
	}
	return out
}

// ExpandString replaces each {{ expression }} segment with the string form
// of its evaluated result. Strings without template markers are returned
// as-is; a failing segment returns the whole original string.
func (tp *TemplateProcessor) ExpandString(s string, vars map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	result := s
	for _, match := range segmentPattern.FindAllStringSubmatch(s, -1) {
		expression := strings.TrimSpace(match[1])
		if expression == "" {
			continue
		}
		value, err := tp.evaluator.Evaluate(expression, vars)
		if err != nil {
			tp.logger.Debug().Str("template", s).Err(err).Msg("template expansion failed")
			return s
		}
		result = strings.ReplaceAll(result, match[0], fmt.Sprint(value))
	}
	return result
}
