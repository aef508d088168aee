// Package security decides whether shell commands may run.
package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

var (
	chainOperators = []string{"&&", "||", ";"}
	// substitutions run a nested command inside an otherwise allowed one.
	substitutions = []struct{ token, name string }{
		{token: "$(", name: "command substitution"},
		{token: "`", name: "backtick substitution"},
		{token: "<(", name: "process substitution"},
		{token: ">(", name: "process substitution"},
	}
	sudoToken     = regexp.MustCompile(`(^|[\s|(])sudo(\s|$)`)
	envAssignment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
	runnerOperand = regexp.MustCompile(`^[0-9.]+[smhd]?$`)
)

// commandRunners execute their operands as another command.
var commandRunners = map[string]struct{}{
	"env":     {},
	"xargs":   {},
	"nohup":   {},
	"time":    {},
	"command": {},
	"exec":    {},
	"nice":    {},
	"timeout": {},
	"stdbuf":  {},
}

// Classifier implements ports.SafetyClassifier.
type Classifier struct {
	mode             domain.SafetyMode
	policy           Policy
	enforceAllowlist bool
	destructive      map[string]struct{}
	allowed          map[string]struct{}
	managers         map[string]struct{}
	scripts          map[string]struct{}
}

// NewClassifier builds a classifier for mode over policy.
func NewClassifier(mode domain.SafetyMode, policy Policy, enforceAllowlist bool) *Classifier {
	return &Classifier{
		mode:             mode,
		policy:           policy,
		enforceAllowlist: enforceAllowlist,
		destructive:      toSet(policy.DestructiveCommands),
		allowed:          toSet(policy.AllowedCommands),
		managers:         toSet(policy.PackageManagers),
		scripts:          toSet(policy.ScriptSubcommands),
	}
}

// Mode returns the active safety mode.
func (c *Classifier) Mode() domain.SafetyMode {
	return c.mode
}

// IsSafe implements ports.SafetyClassifier. Relaxed and off modes accept
// every command unmodified.
func (c *Classifier) IsSafe(command string) domain.SafetyVerdict {
	if c.mode != domain.SafetyStrict {
		return domain.SafetyVerdict{Safe: true}
	}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return unsafe("empty command")
	}

	if verdict, ok := checkSeparators(trimmed); !ok {
		return verdict
	}

	if sudoToken.MatchString(trimmed) {
		return unsafe("privilege escalation with sudo is not allowed")
	}

	segments := pipelineSegments(trimmed)
	for _, fields := range segments {
		if base, ok := c.destructiveIn(fields); ok {
			return unsafe(fmt.Sprintf("destructive command %q is not allowed", base))
		}
	}

	for _, pattern := range c.policy.patterns {
		if pattern.re.MatchString(trimmed) {
			return unsafe(fmt.Sprintf("matches danger pattern: %s", pattern.rule.Message))
		}
	}

	for _, fields := range segments {
		for _, args := range invocations(fields) {
			base := baseCommand(args)
			if c.enforceAllowlist {
				if _, ok := c.allowed[base]; !ok {
					return unsafe(fmt.Sprintf("command %q is not in the allow-list", base))
				}
			}
			if sub, ok := c.scriptSubcommand(base, args); ok {
				return unsafe(fmt.Sprintf("package manager script execution %q is not allowed", base+" "+sub))
			}
		}
	}

	return domain.SafetyVerdict{Safe: true}
}

// checkSeparators rejects every way sh -c starts a second command: chaining
// operators, line breaks, background jobs and substitutions.
func checkSeparators(command string) (domain.SafetyVerdict, bool) {
	for _, op := range chainOperators {
		if strings.Contains(command, op) {
			return unsafe(fmt.Sprintf("command chaining with %q is not allowed", op)), false
		}
	}
	if strings.ContainsAny(command, "\r\n") {
		return unsafe("command chaining with a line break is not allowed"), false
	}
	if hasBackgroundOperator(command) {
		return unsafe(`command chaining with "&" is not allowed`), false
	}
	for _, sub := range substitutions {
		if strings.Contains(command, sub.token) {
			return unsafe(fmt.Sprintf("%s with %q is not allowed", sub.name, sub.token)), false
		}
	}
	return domain.SafetyVerdict{}, true
}

// hasBackgroundOperator finds a lone "&". Redirections such as 2>&1 and
// &>file are not separators.
func hasBackgroundOperator(command string) bool {
	for i := 0; i < len(command); i++ {
		if command[i] != '&' {
			continue
		}
		if i > 0 && (command[i-1] == '>' || command[i-1] == '<') {
			continue
		}
		if i+1 < len(command) && command[i+1] == '>' {
			continue
		}
		return true
	}
	return false
}

// destructiveIn checks every command a segment runs. Once a runner such as
// env or xargs is involved any operand naming a destructive command counts,
// since runner flags make the wrapped position ambiguous.
func (c *Classifier) destructiveIn(fields []string) (string, bool) {
	chain := invocations(fields)
	for _, args := range chain {
		if base := baseCommand(args); c.isDestructive(base) {
			return base, true
		}
	}
	if len(chain) == 0 || !isRunner(baseCommand(chain[0])) {
		return "", false
	}
	for _, f := range fields {
		if base := strings.ToLower(filepath.Base(f)); c.isDestructive(base) {
			return base, true
		}
	}
	return "", false
}

// invocations returns the commands one segment runs: its own command and,
// for runners, the wrapped command, recursively.
func invocations(fields []string) [][]string {
	var out [][]string
	for {
		idx := commandIndex(fields)
		if idx < 0 {
			return out
		}
		out = append(out, fields[idx:])
		if !isRunner(strings.ToLower(filepath.Base(fields[idx]))) {
			return out
		}
		fields = runnerOperands(fields[idx+1:])
	}
}

// runnerOperands drops the runner's own flags, assignments and numeric
// arguments such as durations or priorities.
func runnerOperands(fields []string) []string {
	for idx, f := range fields {
		if strings.HasPrefix(f, "-") || envAssignment.MatchString(f) || runnerOperand.MatchString(f) {
			continue
		}
		return fields[idx:]
	}
	return nil
}

func isRunner(base string) bool {
	_, ok := commandRunners[base]
	return ok
}

func (c *Classifier) isDestructive(base string) bool {
	if base == "" {
		return false
	}
	if _, ok := c.destructive[base]; ok {
		return true
	}
	for entry := range c.destructive {
		if strings.HasSuffix(entry, ".*") && strings.HasPrefix(base, strings.TrimSuffix(entry, "*")) {
			return true
		}
	}
	return false
}

// scriptSubcommand reports the first positional argument of a package manager
// when it names an arbitrary-script subcommand.
func (c *Classifier) scriptSubcommand(base string, args []string) (string, bool) {
	if _, ok := c.managers[base]; !ok {
		return "", false
	}
	for _, arg := range commandArgs(args) {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		_, ok := c.scripts[strings.ToLower(arg)]
		return arg, ok
	}
	return "", false
}

// pipelineSegments splits a command on pipes and returns each segment's fields.
func pipelineSegments(command string) [][]string {
	var out [][]string
	for _, segment := range strings.Split(command, "|") {
		fields := strings.Fields(segment)
		if len(fields) > 0 {
			out = append(out, fields)
		}
	}
	return out
}

// commandIndex returns the position of the executable, skipping leading
// environment assignments, or -1 when there is none.
func commandIndex(fields []string) int {
	for idx, f := range fields {
		if !envAssignment.MatchString(f) {
			return idx
		}
	}
	return -1
}

// baseCommand returns the lowercased executable name without its directory.
func baseCommand(fields []string) string {
	idx := commandIndex(fields)
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filepath.Base(fields[idx]))
}

// commandArgs returns the arguments after the executable.
func commandArgs(fields []string) []string {
	idx := commandIndex(fields)
	if idx < 0 {
		return nil
	}
	return fields[idx+1:]
}

func unsafe(reason string) domain.SafetyVerdict {
	return domain.SafetyVerdict{Safe: false, Reason: reason}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	return out
}

var _ ports.SafetyClassifier = (*Classifier)(nil)
