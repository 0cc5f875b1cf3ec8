package ai

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

const (
	TemplateLlama3 = "llama3"
	TemplateChatML = "chatml"
	TemplateGemma  = "gemma"
)

const llama3Template = `<|begin_of_text|>{{range .Messages}}<|start_header_id|>{{.Role}}<|end_header_id|>

{{trim .Content}}<|eot_id|>{{end}}{{if .AddGenerationPrompt}}<|start_header_id|>assistant<|end_header_id|>

{{end}}`

const chatMLTemplate = `{{range .Messages}}<|im_start|>{{.Role}}
{{.Content}}<|im_end|>
{{end}}{{if .AddGenerationPrompt}}<|im_start|>assistant
{{end}}`

const gemmaTemplate = `<bos>{{range .Messages}}<start_of_turn>{{.Role}}
{{trim .Content}}<end_of_turn>
{{end}}{{if .AddGenerationPrompt}}<start_of_turn>model
{{end}}`

var templateFuncs = template.FuncMap{"trim": strings.TrimSpace}

type templateData struct {
	Messages            []Message
	AddGenerationPrompt bool
}

// textTemplate is a ChatTemplate backed by text/template markup.
type textTemplate struct {
	name    string
	tmpl    *template.Template
	stop    []string
	prepare func([]Message) []Message
}

func newTextTemplate(name, markup string, stop []string, prepare func([]Message) []Message) *textTemplate {
	return &textTemplate{
		name:    name,
		tmpl:    template.Must(template.New(name).Funcs(templateFuncs).Parse(markup)),
		stop:    stop,
		prepare: prepare,
	}
}

func (t *textTemplate) Name() string { return t.name }

func (t *textTemplate) Terminators() []string {
	return append([]string(nil), t.stop...)
}

// RenderChatTemplate renders messages and appends the assistant generation cue.
func (t *textTemplate) RenderChatTemplate(messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages are required")
	}
	normalized := make([]Message, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case "system", "user", "assistant":
		default:
			return "", fmt.Errorf("unsupported role: %s", msg.Role)
		}
		normalized = append(normalized, Message{Role: role, Content: msg.Content})
	}
	if t.prepare != nil {
		normalized = t.prepare(normalized)
	}

	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, templateData{Messages: normalized, AddGenerationPrompt: true}); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.name, err)
	}
	return sb.String(), nil
}

// foldGemmaRoles merges the system prompt into the first user turn and renames
// assistant turns to "model", since the markup only knows two roles.
func foldGemmaRoles(messages []Message) []Message {
	var system []string
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, strings.TrimSpace(msg.Content))
		case "assistant":
			out = append(out, Message{Role: "model", Content: msg.Content})
		default:
			if len(system) > 0 {
				msg.Content = strings.Join(system, "\n\n") + "\n\n" + msg.Content
				system = nil
			}
			out = append(out, msg)
		}
	}
	return out
}

var builtinTemplates = map[string]ChatTemplate{
	TemplateLlama3: newTextTemplate(TemplateLlama3, llama3Template, []string{"<|eot_id|>", "<|end_of_text|>"}, nil),
	TemplateChatML: newTextTemplate(TemplateChatML, chatMLTemplate, []string{"<|im_end|>"}, nil),
	TemplateGemma:  newTextTemplate(TemplateGemma, gemmaTemplate, []string{"<end_of_turn>", "<eos>"}, foldGemmaRoles),
}

// TemplateFor returns a built-in chat template by name.
func TemplateFor(name string) (ChatTemplate, error) {
	tmpl, ok := builtinTemplates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown chat template: %q (available: %s)", name, strings.Join(TemplateNames(), ", "))
	}
	return tmpl, nil
}

// TemplateForModel guesses the chat markup from a model id. Llama 3 is the
// fallback.
func TemplateForModel(model string) ChatTemplate {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gemma"):
		return builtinTemplates[TemplateGemma]
	case strings.Contains(m, "qwen"), strings.Contains(m, "lfm"), strings.Contains(m, "chatml"):
		return builtinTemplates[TemplateChatML]
	default:
		return builtinTemplates[TemplateLlama3]
	}
}

// ResolveTemplate prefers an explicit template name and falls back to the
// model id.
func ResolveTemplate(name, model string) (ChatTemplate, error) {
	if strings.TrimSpace(name) != "" {
		return TemplateFor(name)
	}
	return TemplateForModel(model), nil
}

// TemplateNames lists the built-in template names in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
