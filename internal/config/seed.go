package config

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the rule configuration file: business rules with their
// attributes and operands.
type Seed struct {
	Rules []SeedRule `yaml:"rules"`
}

type SeedRule struct {
	Name       string          `yaml:"name"`
	Type       domain.RuleType `yaml:"type"`
	Priority   int             `yaml:"priority"`
	Active     *bool           `yaml:"active"`
	Attributes []SeedAttribute `yaml:"attributes"`
}

type SeedAttribute struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Values      []string `yaml:"values"`
}

func (r SeedRule) IsActive() bool {
	return r.Active == nil || *r.Active
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed %s: %w", path, err)
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}

	return &seed, nil
}

func (s *Seed) Validate() error {
	for _, rule := range s.Rules {
		if rule.Name == "" {
			return fmt.Errorf("%w: seed rule name is required", ErrInvalidConfig)
		}
		if rule.Type != domain.RuleTypeNonSTP && rule.Type != domain.RuleTypeNetting {
			return fmt.Errorf("%w: seed rule %s has unknown type %q", ErrInvalidConfig, rule.Name, rule.Type)
		}
		for _, attr := range rule.Attributes {
			if attr.Name == "" {
				return fmt.Errorf("%w: seed rule %s has an unnamed attribute", ErrInvalidConfig, rule.Name)
			}
		}
	}
	return nil
}

type SeedResult struct {
	Rules      int
	Attributes int
	Values     int
}

// Apply writes the seed through repo. Rules and attributes that already
// exist are left as they are, so applying the same seed twice is harmless.
func (s *Seed) Apply(ctx context.Context, repo repository.RuleConfigRepository) (*SeedResult, error) {
	result := &SeedResult{}

	for _, sr := range s.Rules {
		rule, err := repo.FindBusinessRule(ctx, sr.Name, sr.Type)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			rule = &domain.BusinessRule{
				Name:     sr.Name,
				Type:     sr.Type,
				Active:   sr.IsActive(),
				Priority: sr.Priority,
			}
			if err := repo.CreateRule(ctx, rule); err != nil {
				return result, fmt.Errorf("failed to create rule %s: %w", sr.Name, err)
			}
			result.Rules++
		case err != nil:
			return result, fmt.Errorf("failed to find rule %s: %w", sr.Name, err)
		}

		for _, sa := range sr.Attributes {
			if _, err := repo.FindRuleAttribute(ctx, sa.Name, sr.Type); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return result, fmt.Errorf("failed to find attribute %s: %w", sa.Name, err)
			}

			attr := &domain.RuleAttribute{AttributeName: sa.Name, DisplayName: sa.DisplayName}
			if attr.DisplayName == "" {
				attr.DisplayName = sa.Name
			}
			if err := repo.CreateAttribute(ctx, rule, attr); err != nil {
				return result, fmt.Errorf("failed to create attribute %s: %w", sa.Name, err)
			}
			result.Attributes++

			for _, operand := range sa.Values {
				if _, err := repo.CreateValue(ctx, attr, operand); err != nil {
					return result, fmt.Errorf("failed to create value %q for %s: %w", operand, sa.Name, err)
				}
				result.Values++
			}
		}
	}

	return result, nil
}
