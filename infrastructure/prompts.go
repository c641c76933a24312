package infrastructure

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"staffable/domain"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type promptDef struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Temperature float32 `yaml:"temperature"`
	JSON        bool    `yaml:"json"`
}

type compiledPrompt struct {
	def    promptDef
	system *template.Template
	user   *template.Template
}

// PromptCatalog renders the named prompt templates used by the assistant.
type PromptCatalog struct {
	prompts map[string]compiledPrompt
}

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

func NewPromptCatalog() (*PromptCatalog, error) {
	return ParsePromptCatalog(defaultPrompts)
}

func ParsePromptCatalog(src []byte) (*PromptCatalog, error) {
	var defs map[string]promptDef
	if err := yaml.Unmarshal(src, &defs); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	c := &PromptCatalog{prompts: make(map[string]compiledPrompt, len(defs))}
	for name, def := range defs {
		cp := compiledPrompt{def: def}
		var err error
		if cp.system, err = template.New(name + ".system").Funcs(promptFuncs).Parse(def.System); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		if def.User != "" {
			if cp.user, err = template.New(name + ".user").Funcs(promptFuncs).Parse(def.User); err != nil {
				return nil, fmt.Errorf("prompt %s: %w", name, err)
			}
		}
		c.prompts[name] = cp
	}
	return c, nil
}

// Render fills the named prompt. Prompts with a user template get it as the
// single user message; chat prompts only carry the system text.
func (c *PromptCatalog) Render(name string, data any) (domain.Prompt, error) {
	cp, ok := c.prompts[name]
	if !ok {
		return domain.Prompt{}, fmt.Errorf("unknown prompt %q", name)
	}

	var sys bytes.Buffer
	if err := cp.system.Execute(&sys, data); err != nil {
		return domain.Prompt{}, fmt.Errorf("render prompt %s: %w", name, err)
	}
	p := domain.Prompt{
		System:      strings.TrimSpace(sys.String()),
		Temperature: cp.def.Temperature,
		JSON:        cp.def.JSON,
	}

	if cp.user != nil {
		var user bytes.Buffer
		if err := cp.user.Execute(&user, data); err != nil {
			return domain.Prompt{}, fmt.Errorf("render prompt %s: %w", name, err)
		}
		p.Messages = []domain.ChatMessage{{Role: domain.ChatUser, Content: strings.TrimSpace(user.String())}}
	}
	return p, nil
}
