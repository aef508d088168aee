package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// maxFileContext bounds the numbered file content sent with proposal requests.
const maxFileContext = 60000

var (
	intentTemplate = template.Must(template.New("intent").Parse(`Classify the user's request for a coding agent working in {{.Root}}.

Respond with exactly one JSON object and nothing else. Either
{"type":"question","question":"<the question>"}
or
{"type":"edit","action":"add_code|modify_code|shell_command|compound_action","target":"<file, symbol or feature>","description":"<what to change>","command":"<shell command, shell_command only>","steps":[{"action":"add_code|modify_code|shell_command","target":"...","description":"...","command":"<shell steps only>"}]}

Rules:
- shell_command requires "command".
- compound_action requires a non-empty "steps" list; steps cannot be compound.
- Use "cd <dir>" as a shell_command to change directory.
{{if .History}}
Recent turns:
{{range .History}}- {{.Prompt}} => {{.Intent}} ({{.State}})
{{end}}{{end}}
Request:
{{.Prompt}}`))

	proposeTemplate = template.Must(template.New("propose").Parse(`You write precise text patches for a coding agent working in {{.Root}}.

Task: {{.Action}} {{.Target}}
Details: {{.Description}}
{{if .NewFile}}
The file {{.File}} does not exist yet. Create it with an append proposal (lineNumber null).
{{else}}
Best match: {{.File}} line {{.Line}}: {{.MatchLine}}

Current content of {{.File}} (numbered):
{{.Content}}
{{end}}{{if .Feedback}}
Previous proposals:
{{.Previous}}

The user rejected them with this feedback:
{{.Feedback}}
{{end}}
Respond with exactly one JSON object and nothing else:
{"proposals":[{"file":"<path relative to project root>","original":"<exact text to replace>","replacement":"<new text>","lineNumber":<1-based line of original, or null to append>,"explanation":"<one sentence>"}]}

Rules:
- "original" must be copied verbatim from the file.
- Paths must stay inside the project root.
- No placeholder code.`))

	validateTemplate = template.Must(template.New("validate").Parse(`Review these proposed text patches for plausibility. Judge whether each "original" plausibly exists, whether the anchor is unambiguous, and whether the replacement is real code rather than a placeholder.

Proposals:
{{.Proposals}}

Respond with exactly one JSON object and nothing else, one result per proposal in the same order ({{.Count}} results):
{"results":[{"isValid":true|false,"errors":["..."],"warnings":["..."]}]}`))

	answerTemplate = template.Must(template.New("answer").Parse(`You are a concise assistant for a developer working in {{.Root}}. Answer in plain text.

{{.Question}}`))
)

type intentData struct {
	Root    string
	Prompt  string
	History []domain.HistoryRecord
}

type proposeData struct {
	Root        string
	Action      string
	Target      string
	Description string
	File        string
	Line        int
	MatchLine   string
	NewFile     bool
	Content     string
	Feedback    string
	Previous    string
}

type validateData struct {
	Proposals string
	Count     int
}

type answerData struct {
	Root     string
	Question string
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func newProposeData(req ports.ProposalRequest) proposeData {
	return proposeData{
		Root:        req.Project.Root,
		Action:      req.Intent.Action,
		Target:      req.Intent.Target,
		Description: req.Intent.Description,
		File:        req.Match.File,
		Line:        req.Match.LineNumber,
		MatchLine:   strings.TrimSpace(req.Match.Line),
		NewFile:     req.Match.NewFile,
		Content:     numbered(req.FileContent),
	}
}

// numbered prefixes each line with its 1-based number, truncated to maxFileContext.
func numbered(content string) string {
	if content == "" {
		return "(empty file)"
	}
	var b strings.Builder
	for idx, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		entry := fmt.Sprintf("%5d| %s\n", idx+1, line)
		if b.Len()+len(entry) > maxFileContext {
			b.WriteString("... (truncated)\n")
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

func proposalsJSON(proposals []domain.Proposal) string {
	raw, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}
