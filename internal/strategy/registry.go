package strategy

import (
	"fmt"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/prompt"
	"github.com/signalnine/promptbench/internal/sandbox"
)

const (
	ZeroShotName          = "zero-shot"
	FewShotName           = "few-shot"
	ProgressiveHintName   = "progressive-hint"
	ProgramOfThoughtsName = "program-of-thoughts"
	HybridName            = "hybrid-pot-php"

	// All selects every strategy in Names order.
	All = "all"
)

var descriptions = map[string]string{
	ZeroShotName:          "single call, question only",
	FewShotName:           "single call with worked examples",
	ProgressiveHintName:   "re-ask with rotating hints and answer feedback until correct",
	ProgramOfThoughtsName: "model writes a Python program; answer is what it prints",
	HybridName:            "program-of-thoughts, falling back to progressive-hint",
}

// Names lists strategies in the order "all" runs them.
func Names() []string {
	return []string{ZeroShotName, FewShotName, ProgressiveHintName, ProgramOfThoughtsName, HybridName}
}

func Describe(name string) string { return descriptions[name] }

// Resolve expands a strategy selector into concrete names.
func Resolve(selector string) ([]string, error) {
	if selector == "" || selector == All {
		return Names(), nil
	}
	if _, ok := descriptions[selector]; !ok {
		return nil, fmt.Errorf("unknown strategy %q (want one of %v or %q)", selector, Names(), All)
	}
	return []string{selector}, nil
}

// Settings tunes strategy behaviour. Zero fields take defaults; a negative
// LongAnswerThreshold turns the length check off.
type Settings struct {
	FewShotShots        int
	HintShots           int
	MaxHints            int
	LongAnswerThreshold int
	HintTemplates       []string
	CodeTimeout         time.Duration
	PoTTemperature      *float64
	PHPTemperature      *float64
}

func (s Settings) withDefaults() Settings {
	if s.FewShotShots <= 0 {
		s.FewShotShots = len(prompt.Exemplars)
	}
	if s.HintShots <= 0 {
		s.HintShots = len(prompt.Exemplars)
	}
	if s.MaxHints <= 0 {
		s.MaxHints = DefaultMaxHints
	}
	if s.LongAnswerThreshold == 0 {
		s.LongAnswerThreshold = DefaultLongAnswerThreshold
	}
	if len(s.HintTemplates) == 0 {
		s.HintTemplates = prompt.HintTemplates
	}
	if s.CodeTimeout <= 0 {
		s.CodeTimeout = DefaultCodeTimeout
	}
	return s
}

type Deps struct {
	Service  llm.Service
	Sandbox  sandbox.Runner
	Settings Settings
}

// New builds the named executor.
func New(name string, d Deps) (Executor, error) {
	if d.Service == nil {
		return nil, fmt.Errorf("strategy %s: no service", name)
	}
	s := d.Settings.withDefaults()
	switch name {
	case ZeroShotName:
		return &NShot{Label: ZeroShotName, Shots: 0, Service: d.Service}, nil
	case FewShotName:
		return &NShot{Label: FewShotName, Shots: s.FewShotShots, Service: d.Service}, nil
	case ProgressiveHintName:
		return newHint(d.Service, s), nil
	case ProgramOfThoughtsName:
		return newPoT(d, s)
	case HybridName:
		pot, err := newPoT(d, s)
		if err != nil {
			return nil, err
		}
		return &Hybrid{
			PoT:            pot,
			PHP:            newHint(d.Service, s),
			PoTTemperature: floatOr(s.PoTTemperature, DefaultPoTTemperature),
			PHPTemperature: floatOr(s.PHPTemperature, DefaultPHPTemperature),
		}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

func newHint(svc llm.Service, s Settings) *ProgressiveHint {
	return &ProgressiveHint{
		Service:             svc,
		Shots:               s.HintShots,
		MaxHints:            s.MaxHints,
		Templates:           s.HintTemplates,
		LongAnswerThreshold: s.LongAnswerThreshold,
	}
}

func newPoT(d Deps, s Settings) (*ProgramOfThoughts, error) {
	if d.Sandbox == nil {
		return nil, fmt.Errorf("strategy %s: no sandbox configured", ProgramOfThoughtsName)
	}
	return &ProgramOfThoughts{Service: d.Service, Sandbox: d.Sandbox, Timeout: s.CodeTimeout}, nil
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
