// Package reply picks the intent of an email and fills in a canned answer.
package reply

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/mailtriage/mailtriage/internal/classifier"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Data is made available to reply templates.
type Data struct {
	Protocol    string
	HasProtocol bool
	Category    classifier.Category
	Subtype     Subtype
}

type templateKey struct {
	category classifier.Category
	subtype  Subtype
}

// templateTable maps a (category, subtype) pair to a template name.
// Pairs not listed use the category's default template.
var templateTable = map[templateKey]string{
	{classifier.Productive, SubtypeStatus}:     "productive_status",
	{classifier.Productive, SubtypeAttachment}: "productive_attachment",
	{classifier.Productive, SubtypeSupport}:    "productive_support",
	{classifier.Unproductive, SubtypeThanks}:    "unproductive_thanks",
	{classifier.Unproductive, SubtypeGreetings}: "unproductive_greetings",
}

var defaultTemplates = map[classifier.Category]string{
	classifier.Productive:   "productive_default",
	classifier.Unproductive: "unproductive_default",
}

// Engine renders replies from the embedded templates. It is read-only after
// NewEngine and safe for concurrent use.
type Engine struct {
	templates map[string]*template.Template
}

// NewEngine parses every reply template.
func NewEngine() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
	}

	names := make([]string, 0, len(templateTable)+len(defaultTemplates))
	for _, name := range templateTable {
		names = append(names, name)
	}
	for _, name := range defaultTemplates {
		names = append(names, name)
	}

	for _, name := range names {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		e.templates[name] = tmpl
	}

	return e, nil
}

// TemplateName returns the template used for a category and subtype.
func TemplateName(category classifier.Category, subtype Subtype) string {
	if name, ok := templateTable[templateKey{category, subtype}]; ok {
		return name
	}
	if name, ok := defaultTemplates[category]; ok {
		return name
	}
	return defaultTemplates[classifier.Unproductive]
}

// Generate builds the reply for text, filling in its protocol code when the
// chosen template uses one.
func (e *Engine) Generate(text string, category classifier.Category, subtype Subtype) (string, error) {
	name := TemplateName(category, subtype)
	tmpl, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	protocol, hasProtocol := ExtractProtocol(text)
	data := Data{
		Protocol:    protocol,
		HasProtocol: hasProtocol,
		Category:    category,
		Subtype:     subtype,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Respond detects the subtype of text and renders the matching reply.
func (e *Engine) Respond(text string, category classifier.Category) (Subtype, string, error) {
	subtype := DetectSubtype(text, category)
	body, err := e.Generate(text, category, subtype)
	if err != nil {
		return subtype, "", err
	}
	return subtype, body, nil
}
