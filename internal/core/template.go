package core

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultFailureTemplate is the message shown when toggling fails.
const DefaultFailureTemplate = `Something went wrong when toggling "{{ .Title }}"`

// MessageData is the data available to notification templates.
type MessageData struct {
	Title    string
	Kind     string
	Identity string
	Enabled  bool
	Reason   string
}

// ExecuteTemplate renders content with sprig functions available.
func ExecuteTemplate(content string, data interface{}) (string, error) {
	// missingkey=zero allows optional variables, which works with Sprig's 'default'.
	tmpl, err := template.New("calswitch").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// RenderMessage renders a notification template for a toggle.
// An empty template falls back to DefaultFailureTemplate.
func RenderMessage(content string, t Toggle, enabled bool, reason string) (string, error) {
	if content == "" {
		content = DefaultFailureTemplate
	}
	return ExecuteTemplate(content, MessageData{
		Title:    t.DisplayName(),
		Kind:     t.Kind.String(),
		Identity: t.Identity,
		Enabled:  enabled,
		Reason:   reason,
	})
}
