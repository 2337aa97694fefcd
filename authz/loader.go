package authz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dsz/skyfleet/models"
)

// File is the YAML form of a policy override. Pages replace the default page
// table when present; rules replace the default rule of the same action.
//
//	pages:
//	  - prefix: /reports
//	    roles: [Administrator, Viewer]
//	rules:
//	  - action: missions.update
//	    roles: [Administrator]
//	  - action: flights.read
//	    roles: [Administrator, Pilot, Viewer]
//	    ownership: pilot
//	    ownership_roles: [Pilot]
type File struct {
	Pages []PageFile `yaml:"pages"`
	Rules []RuleFile `yaml:"rules"`
}

// PageFile is one page rule in a policy file
type PageFile struct {
	Prefix string   `yaml:"prefix"`
	Roles  []string `yaml:"roles"`
}

// RuleFile is one route rule in a policy file
type RuleFile struct {
	Action         string   `yaml:"action"`
	Roles          []string `yaml:"roles"`
	Ownership      string   `yaml:"ownership"`
	OwnershipRoles []string `yaml:"ownership_roles"`
}

// LoadPolicy returns the default policy, overridden by the YAML file at path
// when path is non-empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy applies YAML overrides to the default policy
func ParsePolicy(data []byte) (*Policy, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	pages := DefaultPages()
	if len(f.Pages) > 0 {
		pages = pages[:0]
		for _, pf := range f.Pages {
			if pf.Prefix == "" || pf.Prefix[0] != '/' {
				return nil, fmt.Errorf("page prefix %q must start with /", pf.Prefix)
			}
			roles, err := parseRoles(pf.Roles)
			if err != nil {
				return nil, fmt.Errorf("page %s: %w", pf.Prefix, err)
			}
			pages = append(pages, PageRule{Prefix: pf.Prefix, AllowedRoles: roles})
		}
	}

	rules := DefaultRules()
	index := make(map[Action]int, len(rules))
	for i, r := range rules {
		index[r.Action] = i
	}
	for _, rf := range f.Rules {
		rule, err := rf.toRule()
		if err != nil {
			return nil, err
		}
		if i, ok := index[rule.Action]; ok {
			rules[i] = rule
			continue
		}
		index[rule.Action] = len(rules)
		rules = append(rules, rule)
	}

	return NewPolicy(pages, rules), nil
}

func (rf RuleFile) toRule() (Rule, error) {
	if rf.Action == "" {
		return Rule{}, fmt.Errorf("rule without action")
	}
	roles, err := parseRoles(rf.Roles)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", rf.Action, err)
	}
	rule := Rule{Action: Action(rf.Action), AllowedRoles: roles}
	if rf.Ownership == "" || rf.Ownership == "none" {
		return rule, nil
	}
	pred, ok := predicates[rf.Ownership]
	if !ok {
		return Rule{}, fmt.Errorf("rule %s: unknown ownership %q", rf.Action, rf.Ownership)
	}
	ownershipRoles, err := parseRoles(rf.OwnershipRoles)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", rf.Action, err)
	}
	rule.Ownership = pred
	rule.OwnershipRoles = ownershipRoles
	return rule, nil
}

func parseRoles(names []string) ([]models.Role, error) {
	roles := make([]models.Role, 0, len(names))
	for _, n := range names {
		r, err := models.ParseRole(n)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}
