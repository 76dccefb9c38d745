package prompts

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// Spec declares a prompt. System and User are text/template bodies executed against Input.
type Spec struct {
	Name       PromptName
	Version    int
	System     string
	User       string
	Validators []Validator
}

// Template is a compiled Spec. Both halves live in one template set as "system" and "user".
type Template struct {
	Name       PromptName
	Version    int
	set        *template.Template
	validators []Validator
}

// MakeTemplate checks and compiles s. Missing Input fields render as their zero value.
func MakeTemplate(s Spec) (Template, error) {
	switch {
	case strings.TrimSpace(string(s.Name)) == "":
		return Template{}, errors.New("prompt spec without a name")
	case s.Version < 1:
		return Template{}, fmt.Errorf("prompt %s: version must be >= 1", s.Name)
	}
	set := template.New(string(s.Name)).Option("missingkey=zero")
	for part, body := range map[string]string{"system": s.System, "user": s.User} {
		if _, err := set.New(part).Parse(body); err != nil {
			return Template{}, fmt.Errorf("prompt %s: %s: %w", s.Name, part, err)
		}
	}
	validators := make([]Validator, 0, len(s.Validators))
	for _, v := range s.Validators {
		if v != nil {
			validators = append(validators, v)
		}
	}
	return Template{Name: s.Name, Version: s.Version, set: set, validators: validators}, nil
}

// Render validates in and executes both halves.
func (t Template) Render(in Input) (Prompt, error) {
	if t.set == nil {
		return Prompt{}, fmt.Errorf("prompt %s is not compiled", t.Name)
	}
	for _, v := range t.validators {
		if err := v(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	p := Prompt{Name: string(t.Name), Version: t.Version}
	for part, dst := range map[string]*string{"system": &p.System, "user": &p.User} {
		var b strings.Builder
		if err := t.set.ExecuteTemplate(&b, part, in); err != nil {
			return Prompt{}, fmt.Errorf("%s %s render: %w", t.Name, part, err)
		}
		*dst = strings.TrimSpace(b.String())
	}
	return p, nil
}
