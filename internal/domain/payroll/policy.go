package payroll

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// policyAmount keeps the literal YAML scalar so rates like 0.062 are never
// routed through float64.
type policyAmount struct {
	decimal.Decimal
	set bool
}

func (a *policyAmount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	value, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number", node.Line, node.Value)
	}
	a.Decimal = value
	a.set = true
	return nil
}

type policyFile struct {
	MinorUnits  *int32          `yaml:"minorUnits"`
	TaxBrackets []policyBracket `yaml:"taxBrackets"`
	Social      *struct {
		Rate policyAmount `yaml:"rate"`
		Cap  policyAmount `yaml:"cap"`
	} `yaml:"socialSecurity"`
	Estimator *struct {
		SocialSecurityRate policyAmount `yaml:"socialSecurityRate"`
		MedicareRate       policyAmount `yaml:"medicareRate"`
	} `yaml:"estimator"`
	Overtime *struct {
		Default  string           `yaml:"default"`
		Policies []policyOvertime `yaml:"policies"`
	} `yaml:"overtime"`
}

type policyBracket struct {
	UpTo policyAmount `yaml:"upTo"`
	Rate policyAmount `yaml:"rate"`
}

type policyOvertime struct {
	Name                string       `yaml:"name"`
	HoursPerDay         policyAmount `yaml:"hoursPerDay"`
	WorkingDaysPerMonth policyAmount `yaml:"workingDaysPerMonth"`
	Multiplier          policyAmount `yaml:"multiplier"`
}

// ParsePolicy overlays a YAML pay policy on the statutory defaults. Sections
// left out of the document keep their default values. A bracket without upTo
// is the open top band.
func ParsePolicy(data []byte) (CalculatorConfig, error) {
	cfg := DefaultCalculatorConfig()
	var doc policyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return CalculatorConfig{}, fmt.Errorf("%w: pay policy: %v", ErrInvalidInput, err)
	}

	if doc.MinorUnits != nil {
		cfg.MinorUnits = *doc.MinorUnits
	}
	if len(doc.TaxBrackets) > 0 {
		cfg.Brackets = make([]TaxBracket, 0, len(doc.TaxBrackets))
		for _, b := range doc.TaxBrackets {
			if !b.Rate.set {
				return CalculatorConfig{}, fmt.Errorf("%w: pay policy: every tax bracket needs a rate", ErrInvalidInput)
			}
			cfg.Brackets = append(cfg.Brackets, TaxBracket{UpperBound: b.UpTo.Decimal, Rate: b.Rate.Decimal})
		}
	}
	if doc.Social != nil {
		if doc.Social.Rate.set {
			cfg.SocialSecurity.Rate = doc.Social.Rate.Decimal
		}
		if doc.Social.Cap.set {
			cfg.SocialSecurity.Cap = doc.Social.Cap.Decimal
		}
	}
	if doc.Estimator != nil {
		if doc.Estimator.SocialSecurityRate.set {
			cfg.Estimator.SocialSecurityRate = doc.Estimator.SocialSecurityRate.Decimal
		}
		if doc.Estimator.MedicareRate.set {
			cfg.Estimator.MedicareRate = doc.Estimator.MedicareRate.Decimal
		}
	}
	if doc.Overtime != nil {
		if len(doc.Overtime.Policies) > 0 {
			cfg.Overtime = make([]OvertimePolicy, 0, len(doc.Overtime.Policies))
			for _, p := range doc.Overtime.Policies {
				if p.Name == "" {
					return CalculatorConfig{}, fmt.Errorf("%w: pay policy: overtime policy needs a name", ErrInvalidInput)
				}
				multiplier := overtimeMultiplier
				if p.Multiplier.set {
					multiplier = p.Multiplier.Decimal
				}
				cfg.Overtime = append(cfg.Overtime, OvertimePolicy{
					Name:                p.Name,
					HoursPerDay:         p.HoursPerDay.Decimal,
					WorkingDaysPerMonth: p.WorkingDaysPerMonth.Decimal,
					Multiplier:          multiplier,
				})
			}
		}
		if doc.Overtime.Default != "" {
			cfg.DefaultOvertime = doc.Overtime.Default
		}
	}
	return cfg, nil
}

// LoadCalculator builds the calculator from a policy file, or from the
// statutory defaults when path is empty.
func LoadCalculator(path string) (*Calculator, error) {
	if path == "" {
		return NewCalculator(DefaultCalculatorConfig())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pay policy: %w", err)
	}
	cfg, err := ParsePolicy(data)
	if err != nil {
		return nil, err
	}
	return NewCalculator(cfg)
}
