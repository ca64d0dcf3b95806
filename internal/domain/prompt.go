package domain

// Prompt is an editable template the backend feeds to the model.
// The backend addresses prompts by Name on update, not by ID.
type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Content     string `json:"conteudo"`
	Description string `json:"descricao,omitempty"`
}

type PromptPatch struct {
	Name        *string `json:"nome,omitempty"`
	Content     *string `json:"conteudo,omitempty"`
	Description *string `json:"descricao,omitempty"`
}

func (p PromptPatch) Apply(prompt Prompt) Prompt {
	if p.Name != nil {
		prompt.Name = *p.Name
	}
	if p.Content != nil {
		prompt.Content = *p.Content
	}
	if p.Description != nil {
		prompt.Description = *p.Description
	}
	return prompt
}
