package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a batch of scenarios read from a YAML file.
//
//	name: taiwan-stress
//	combine: true
//	scenarios:
//	  - tariff: {country: Taiwan, increase_percentage: 25}
//	  - disruption: {supplier_id: tsmc}
type Plan struct {
	Name      string     `yaml:"name"`
	Combine   bool       `yaml:"combine"`
	Scenarios []PlanStep `yaml:"scenarios"`
}

// PlanStep holds exactly one scenario request.
type PlanStep struct {
	Tariff       *TariffRequest       `yaml:"tariff,omitempty"`
	Disruption   *DisruptionRequest   `yaml:"disruption,omitempty"`
	Geopolitical *GeopoliticalRequest `yaml:"geopolitical,omitempty"`
	Shortage     *ShortageRequest     `yaml:"shortage,omitempty"`
}

// PlanResult holds the results of a plan run.
type PlanResult struct {
	Name     string    `json:"name"`
	Results  []*Result `json:"results"`
	Compound *Result   `json:"compound,omitempty"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan. Request defaults are
// applied before validation.
func ParsePlan(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if len(p.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: plan has no scenarios", ErrInvalidRequest)
	}

	for i := range p.Scenarios {
		if err := p.Scenarios[i].validate(); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i+1, err)
		}
	}
	return &p, nil
}

func (s *PlanStep) validate() error {
	set := 0
	var err error
	if s.Tariff != nil {
		set++
		err = errors.Join(err, s.Tariff.Validate())
	}
	if s.Disruption != nil {
		set++
		s.Disruption.ApplyDefaults()
		err = errors.Join(err, s.Disruption.Validate())
	}
	if s.Geopolitical != nil {
		set++
		s.Geopolitical.ApplyDefaults()
		err = errors.Join(err, s.Geopolitical.Validate())
	}
	if s.Shortage != nil {
		set++
		s.Shortage.ApplyDefaults()
		err = errors.Join(err, s.Shortage.Validate())
	}
	if set != 1 {
		return fmt.Errorf("%w: each step needs exactly one scenario, got %d", ErrInvalidRequest, set)
	}
	return err
}

func (s *PlanStep) run(ctx context.Context, m *Modeler) (*Result, error) {
	switch {
	case s.Tariff != nil:
		return m.Tariff(ctx, *s.Tariff)
	case s.Disruption != nil:
		return m.Disruption(ctx, *s.Disruption)
	case s.Geopolitical != nil:
		return m.Geopolitical(ctx, *s.Geopolitical)
	default:
		return m.Shortage(ctx, *s.Shortage)
	}
}

// RunPlan runs every step of p in order and, when the plan asks for it,
// combines the results.
func (m *Modeler) RunPlan(ctx context.Context, p *Plan) (*PlanResult, error) {
	out := &PlanResult{Name: p.Name, Results: make([]*Result, 0, len(p.Scenarios))}
	for i := range p.Scenarios {
		res, err := p.Scenarios[i].run(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i+1, err)
		}
		out.Results = append(out.Results, res)
	}

	if p.Combine {
		compound, err := m.Combine(ctx, out.Results)
		if err != nil {
			return nil, fmt.Errorf("combine: %w", err)
		}
		out.Compound = compound
	}
	return out, nil
}
