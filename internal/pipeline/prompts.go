package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Template names.
const (
	promptQueries      = "queries.tmpl"
	promptResearch     = "research.tmpl"
	promptAnalysis     = "analysis.tmpl"
	promptVerification = "verification.tmpl"
)

// System prompts give each model call its role.
const (
	researcherRole = "You are a meticulous fact researcher. You find primary sources, " +
		"official records and reputable reporting, and you separate what the evidence " +
		"shows from what it does not."

	analyzerRole = "You are a content analyst trained in media literacy. You identify " +
		"claims, framing, missing context and manipulation techniques without taking sides."

	verifierRole = "You are a senior fact verifier. You weigh research and analysis, " +
		"state how confident you are, and finish with a single verdict."
)

// promptData is what the templates can refer to.
type promptData struct {
	// Kind is the input kind: text, url, youtube or document.
	Kind string
	// Label is a short description of what was submitted.
	Label   string
	Content string
	// SearchResults is search.FormatResults output.
	SearchResults string
	Research      string
	Analysis      string
	// Sources lists the gathered sources, one per line.
	Sources    string
	MaxQueries int
	Today      string
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
