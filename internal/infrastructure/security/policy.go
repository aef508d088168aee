package security

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/shai-agent/assets"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
)

// DangerPattern describes a regex-based rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// Rules holds every list the safety policy is built from.
type Rules struct {
	DangerPatterns      []DangerPattern `yaml:"danger_patterns"`
	DestructiveCommands []string        `yaml:"destructive_commands"`
	AllowedCommands     []string        `yaml:"allowed_commands"`
	PackageManagers     []string        `yaml:"package_managers"`
	ScriptSubcommands   []string        `yaml:"script_subcommands"`
	ContentDenylist     []string        `yaml:"content_denylist"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules Rules `yaml:"rules"`
}

// Policy is a parsed rules file with compiled patterns.
type Policy struct {
	Rules
	patterns []compiledPattern
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DefaultPolicy parses the embedded rules.
func DefaultPolicy() (Policy, error) {
	var file RulesFile
	if err := yaml.Unmarshal(assets.DefaultSafetyYAML, &file); err != nil {
		return Policy{}, fmt.Errorf("parse embedded safety rules: %w", err)
	}
	return compile(file.Rules)
}

// LoadPolicy returns the embedded rules extended by the file at path. An
// empty path or a missing file yields the embedded rules alone.
func LoadPolicy(path string) (Policy, error) {
	base, err := DefaultPolicy()
	if err != nil {
		return Policy{}, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}

	data, err := os.ReadFile(filesystem.ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Policy{}, fmt.Errorf("read safety rules: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse safety rules %s: %w", path, err)
	}
	return compile(merge(base.Rules, file.Rules))
}

// Denylist returns the lowercased content denylist.
func (p Policy) Denylist() []string {
	out := make([]string, 0, len(p.ContentDenylist))
	for _, entry := range p.ContentDenylist {
		out = append(out, strings.ToLower(entry))
	}
	return out
}

func compile(rules Rules) (Policy, error) {
	policy := Policy{Rules: rules}
	for _, pattern := range rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return Policy{}, fmt.Errorf("compile pattern %q: %w", pattern.Pattern, err)
		}
		policy.patterns = append(policy.patterns, compiledPattern{re: re, rule: pattern})
	}
	return policy, nil
}

func merge(base, extra Rules) Rules {
	return Rules{
		DangerPatterns:      mergePatterns(base.DangerPatterns, extra.DangerPatterns),
		DestructiveCommands: mergeStrings(base.DestructiveCommands, extra.DestructiveCommands),
		AllowedCommands:     mergeStrings(base.AllowedCommands, extra.AllowedCommands),
		PackageManagers:     mergeStrings(base.PackageManagers, extra.PackageManagers),
		ScriptSubcommands:   mergeStrings(base.ScriptSubcommands, extra.ScriptSubcommands),
		ContentDenylist:     mergeStrings(base.ContentDenylist, extra.ContentDenylist),
	}
}

func mergeStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, item := range list {
			if _, ok := seen[item]; ok || item == "" {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func mergePatterns(base, extra []DangerPattern) []DangerPattern {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]DangerPattern, 0, len(base)+len(extra))
	for _, list := range [][]DangerPattern{base, extra} {
		for _, item := range list {
			if _, ok := seen[item.Pattern]; ok {
				continue
			}
			seen[item.Pattern] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
