package notifier

import (
	"bytes"
	"fmt"
	"math"
	"text/template"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

const (
	defaultSubject = "Your verification code"
	defaultBody    = "Your verification code is {{.Code}}. It expires in {{.Minutes}} minutes."
)

type parsedTemplate struct {
	subject *template.Template
	body    *template.Template
}

type templateData struct {
	Code    string
	Purpose string
	Minutes int
}

// Renderer fills Subject and Body of a message from per-purpose templates.
type Renderer struct {
	templates map[string]parsedTemplate
}

// sampleData dry-runs templates at load time so a bad field reference is
// rejected before any code is issued.
var sampleData = templateData{Code: "000000", Purpose: entity.DefaultTemplate, Minutes: 5}

// NewRenderer parses and dry-runs every template. A missing default is
// filled with a built-in one.
func NewRenderer(templates map[string]entity.Template) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]parsedTemplate, len(templates)+1)}

	if _, ok := templates[entity.DefaultTemplate]; !ok {
		templates = mergeDefault(templates)
	}

	for purpose, t := range templates {
		subject, body := t.Subject, t.Body
		if subject == "" {
			subject = defaultSubject
		}
		if body == "" {
			body = defaultBody
		}

		st, err := template.New(purpose + ".subject").Option("missingkey=error").Parse(subject)
		if err != nil {
			return nil, fmt.Errorf("otp: parse %s subject template: %w", purpose, err)
		}
		bt, err := template.New(purpose + ".body").Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("otp: parse %s body template: %w", purpose, err)
		}

		pt := parsedTemplate{subject: st, body: bt}
		if _, _, err := pt.execute(sampleData); err != nil {
			return nil, fmt.Errorf("otp: %s template: %w", purpose, err)
		}

		r.templates[purpose] = pt
	}

	return r, nil
}

func mergeDefault(in map[string]entity.Template) map[string]entity.Template {
	out := make(map[string]entity.Template, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[entity.DefaultTemplate] = entity.Template{Subject: defaultSubject, Body: defaultBody}
	return out
}

// Render sets msg.Subject and msg.Body.
func (r *Renderer) Render(msg *Message) error {
	t, ok := r.templates[msg.Purpose]
	if !ok {
		t = r.templates[entity.DefaultTemplate]
	}

	data := templateData{
		Code:    msg.Code,
		Purpose: msg.Purpose,
		Minutes: max(int(math.Ceil(msg.ExpiresIn.Minutes())), 1),
	}

	subject, body, err := t.execute(data)
	if err != nil {
		return err
	}

	msg.Subject, msg.Body = subject, body
	return nil
}

func (t parsedTemplate) execute(data templateData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = buf.String()

	buf.Reset()
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	return subject, buf.String(), nil
}
