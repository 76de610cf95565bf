package usecase

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/dossiersim/internal/model"
)

// Binding prefixes recognized in step input string leaves.
const (
	seedPrefix    = "$seed."
	outputsPrefix = "$outputs."
)

// Definition is the declarative form of a use case.
//
//	id: brca-check
//	name: BRCA check
//	report: variant_impact
//	seed:
//	  gene: BRCA2
//	steps:
//	  - capability: conservation
//	    input: {gene: $seed.gene}
//	  - capability: variant_impact
//	    input:
//	      gene: $seed.gene
//	      conservation: $outputs.conservation.phastcons
//
// String leaves of a step input of the form $seed.<key> or
// $outputs.<capability>.<path...> are replaced by the bound value when the
// step runs; a binding that resolves to nothing yields nil. A step without
// an input receives the seed.
type Definition struct {
	ID      string           `yaml:"id"`
	Name    string           `yaml:"name"`
	Summary string           `yaml:"summary,omitempty"`
	Report  string           `yaml:"report"`
	Seed    map[string]any   `yaml:"seed,omitempty"`
	Steps   []StepDefinition `yaml:"steps"`
}

// StepDefinition is one step of a Definition.
type StepDefinition struct {
	Capability string `yaml:"capability"`
	Title      string `yaml:"title,omitempty"`
	Mode       string `yaml:"mode,omitempty"`
	Input      any    `yaml:"input,omitempty"`
}

// ParseDefinitions reads a YAML document holding a list of definitions.
func ParseDefinitions(r io.Reader) ([]Definition, error) {
	var defs []Definition
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse use case definitions: %w", err)
	}
	return defs, nil
}

// Compile turns a definition into a use case. Step needs are derived from
// the $outputs bindings, so Validate rejects forward references.
func Compile(def Definition) (model.UseCase, error) {
	uc := model.UseCase{
		ID:                 def.ID,
		Name:               def.Name,
		Summary:            def.Summary,
		Seed:               def.Seed,
		ReportCapabilityID: def.Report,
		Steps:              make([]model.Step, 0, len(def.Steps)),
	}
	if uc.Name == "" {
		uc.Name = def.ID
	}

	for i, sd := range def.Steps {
		mode := model.ModeSimulate
		if sd.Mode != "" {
			m, ok := model.ParseMode(sd.Mode)
			if !ok {
				return model.UseCase{}, &DefinitionError{
					UseCaseID:    def.ID,
					StepIndex:    i,
					CapabilityID: sd.Capability,
					Err:          fmt.Errorf("unknown mode %q", sd.Mode),
				}
			}
			mode = m
		}

		needs, err := collectNeeds(sd.Input)
		if err != nil {
			return model.UseCase{}, &DefinitionError{UseCaseID: def.ID, StepIndex: i, CapabilityID: sd.Capability, Err: err}
		}

		step := model.Step{
			CapabilityID: sd.Capability,
			Title:        sd.Title,
			Needs:        needs,
			Mode:         mode,
		}
		if step.Title == "" {
			step.Title = "Running " + sd.Capability
		}
		if sd.Input != nil {
			tree := sd.Input
			step.BuildInput = func(v *model.View) (any, error) {
				return resolve(tree, v), nil
			}
		}
		uc.Steps = append(uc.Steps, step)
	}

	if err := Validate(uc); err != nil {
		return model.UseCase{}, err
	}
	return uc, nil
}

// RegisterDefinitions compiles and registers every definition.
func (c *Catalog) RegisterDefinitions(defs []Definition) error {
	for _, def := range defs {
		uc, err := Compile(def)
		if err != nil {
			return err
		}
		if err := c.Register(uc); err != nil {
			return err
		}
	}
	return nil
}

// binding is a parsed $seed or $outputs reference.
type binding struct {
	seedKey    string
	capability string
	path       []string
}

func parseBinding(s string) (binding, bool, error) {
	switch {
	case strings.HasPrefix(s, seedPrefix):
		key := strings.TrimPrefix(s, seedPrefix)
		if key == "" {
			return binding{}, false, fmt.Errorf("%w: %q has no seed key", ErrInvalidBinding, s)
		}
		return binding{seedKey: key}, true, nil
	case strings.HasPrefix(s, outputsPrefix):
		parts := strings.Split(strings.TrimPrefix(s, outputsPrefix), ".")
		if parts[0] == "" || slices.Contains(parts[1:], "") {
			return binding{}, false, fmt.Errorf("%w: %q", ErrInvalidBinding, s)
		}
		return binding{capability: parts[0], path: parts[1:]}, true, nil
	default:
		return binding{}, false, nil
	}
}

// collectNeeds walks an input tree and returns the capabilities its
// bindings read, in first-seen order.
func collectNeeds(tree any) ([]string, error) {
	var needs []string
	var walk func(node any) error
	walk = func(node any) error {
		switch n := node.(type) {
		case string:
			b, ok, err := parseBinding(n)
			if err != nil {
				return err
			}
			if ok && b.capability != "" && !slices.Contains(needs, b.capability) {
				needs = append(needs, b.capability)
			}
		case map[string]any:
			for _, k := range sortedKeys(n) {
				if err := walk(n[k]); err != nil {
					return err
				}
			}
		case []any:
			for _, item := range n {
				if err := walk(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(tree); err != nil {
		return nil, err
	}
	return needs, nil
}

// resolve returns a copy of tree with every binding replaced.
func resolve(tree any, v *model.View) any {
	switch n := tree.(type) {
	case string:
		b, ok, err := parseBinding(n)
		if err != nil || !ok {
			return n
		}
		if b.seedKey != "" {
			val, _ := v.Seed(b.seedKey)
			return val
		}
		env, found := v.Output(b.capability)
		if !found {
			return nil
		}
		return lookupPath(env.Output, b.path)
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[k] = resolve(val, v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, val := range n {
			out[i] = resolve(val, v)
		}
		return out
	default:
		return n
	}
}

// lookupPath walks maps by key and slices by index.
func lookupPath(root map[string]any, path []string) any {
	var cur any = root
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		case []string:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
