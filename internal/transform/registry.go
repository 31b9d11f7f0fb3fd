package transform

import (
	"sort"

	"github.com/pkg/errors"
)

// Spec names a rule and its field arguments, as found in a dataset
// definition.
type Spec struct {
	Rule   string            `yaml:"rule"`
	Fields []string          `yaml:"fields,omitempty"`
	Args   map[string]string `yaml:"args,omitempty"`
}

type builder struct {
	defaults   map[string]string
	needFields bool
	build      func(args map[string]string, fields []string) Rule
}

var builders = map[string]builder{
	"quota": {
		defaults: map[string]string{
			"ff_status": "FF_STATUS",
			"tribal":    "TRIBAL",
			"phc":       "PHC",
			"has_quota": "has_quota",
			"info":      "quota_info",
		},
		build: func(a map[string]string, _ []string) Rule {
			return Quota{FF: a["ff_status"], Tribal: a["tribal"], PHC: a["phc"], HasQuota: a["has_quota"], QuotaInfo: a["info"]}
		},
	},
	"technical_passed_cadres": {
		defaults: map[string]string{"field": "ALLM_TECH", "target": ""},
		build: func(a map[string]string, _ []string) Rule {
			target := a["target"]
			if target == "" {
				target = a["field"]
			}
			return TechnicalPassedCadres{Field: a["field"], Target: target}
		},
	},
	"cadre_category": {
		defaults: map[string]string{"field": "CAT"},
		build: func(a map[string]string, _ []string) Rule {
			return CadreCategory{Field: a["field"]}
		},
	},
	"merit_positions": {
		defaults: map[string]string{"category": "CAT", "general": "MERIT_GEN", "technical": "MERIT_TECH"},
		build: func(a map[string]string, _ []string) Rule {
			return MeritPositions{Category: a["category"], General: a["general"], Technical: a["technical"]}
		},
	},
	"gender": {
		defaults: map[string]string{"field": "SEX"},
		build: func(a map[string]string, _ []string) Rule {
			return Gender{Field: a["field"]}
		},
	},
	"ddmmyy_date": {
		defaults: map[string]string{"source": "B_DATE", "target": "DOB"},
		build: func(a map[string]string, _ []string) Rule {
			return DDMMYYDate{Source: a["source"], Target: a["target"]}
		},
	},
	"cadre_type": {
		defaults: map[string]string{"source": "CADRE_TYPE", "target": "CAT"},
		build: func(a map[string]string, _ []string) Rule {
			return CadreType{Source: a["source"], Target: a["target"]}
		},
	},
	"integers": {
		needFields: true,
		build: func(_ map[string]string, f []string) Rule {
			return Integers{Fields: f}
		},
	},
	"integers_or_zero": {
		needFields: true,
		build: func(_ map[string]string, f []string) Rule {
			return IntegersOrZero{Fields: f}
		},
	},
	"leading_integers": {
		needFields: true,
		build: func(_ map[string]string, f []string) Rule {
			return LeadingIntegers{Fields: f}
		},
	},
	"null_if_blank": {
		needFields: true,
		build: func(_ map[string]string, f []string) Rule {
			return NullIfBlank{Fields: f}
		},
	},
}

// RuleNames lists the registered rule names.
func RuleNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the rule described by spec, filling in default field names for
// arguments the spec leaves out.
func New(spec Spec) (Rule, error) {
	b, ok := builders[spec.Rule]
	if !ok {
		return nil, errors.Errorf("unknown rule '%s'", spec.Rule)
	}
	args := make(map[string]string, len(b.defaults))
	for k, v := range b.defaults {
		args[k] = v
	}
	for k, v := range spec.Args {
		if _, ok := b.defaults[k]; !ok {
			return nil, errors.Errorf("rule '%s' has no argument '%s'", spec.Rule, k)
		}
		args[k] = v
	}
	if b.needFields && len(spec.Fields) == 0 {
		return nil, errors.Errorf("rule '%s' needs a list of fields", spec.Rule)
	}
	if !b.needFields && len(spec.Fields) > 0 {
		return nil, errors.Errorf("rule '%s' does not take a list of fields", spec.Rule)
	}
	return b.build(args, append([]string(nil), spec.Fields...)), nil
}

// Build turns an ordered list of specs into a Chain.
func Build(specs []Spec) (Chain, error) {
	chain := make(Chain, 0, len(specs))
	for i, s := range specs {
		r, err := New(s)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
		chain = append(chain, r)
	}
	return chain, nil
}

// CheckExclusive rejects rule sets that derive the category both from the
// letter code and from the numeric cadre type.
func CheckExclusive(specs []Spec) error {
	var letter, numeric bool
	for _, s := range specs {
		switch s.Rule {
		case "cadre_category":
			letter = true
		case "cadre_type":
			numeric = true
		}
	}
	if letter && numeric {
		return errors.New("cadre_category and cadre_type cannot be used on the same dataset")
	}
	return nil
}
