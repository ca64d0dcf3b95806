package domain

import (
	"fmt"
	"strings"
)

// Client is an external account whose spreadsheet feeds the analyses.
// JSON names follow the backend contract.
type Client struct {
	ID             string `json:"id"`
	DisplayName    string `json:"nome_exibicao"`
	PromptContext  string `json:"contexto_cliente_prompt"`
	SpreadsheetRef string `json:"planilha_id_ou_nome"`
	AdsTabName     string `json:"google_sheet_tab_name,omitempty"`
	MetaTabName    string `json:"meta_sheet_tab_name,omitempty"`
}

// ClientPatch carries a partial update; nil fields are left untouched.
type ClientPatch struct {
	DisplayName    *string `json:"nome_exibicao,omitempty"`
	PromptContext  *string `json:"contexto_cliente_prompt,omitempty"`
	SpreadsheetRef *string `json:"planilha_id_ou_nome,omitempty"`
	AdsTabName     *string `json:"google_sheet_tab_name,omitempty"`
	MetaTabName    *string `json:"meta_sheet_tab_name,omitempty"`
}

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the fields every persisted client must carry.
func (c Client) Validate() error {
	missing := make([]string, 0, 4)
	if blank(c.ID) {
		missing = append(missing, "id")
	}
	if blank(c.DisplayName) {
		missing = append(missing, "nome_exibicao")
	}
	if blank(c.PromptContext) {
		missing = append(missing, "contexto_cliente_prompt")
	}
	if blank(c.SpreadsheetRef) {
		missing = append(missing, "planilha_id_ou_nome")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Validate rejects a patch that would blank out a required field.
func (p ClientPatch) Validate() error {
	missing := make([]string, 0, 3)
	if p.DisplayName != nil && blank(*p.DisplayName) {
		missing = append(missing, "nome_exibicao")
	}
	if p.PromptContext != nil && blank(*p.PromptContext) {
		missing = append(missing, "contexto_cliente_prompt")
	}
	if p.SpreadsheetRef != nil && blank(*p.SpreadsheetRef) {
		missing = append(missing, "planilha_id_ou_nome")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Apply returns a copy of client with the patch fields set.
func (p ClientPatch) Apply(client Client) Client {
	if p.DisplayName != nil {
		client.DisplayName = *p.DisplayName
	}
	if p.PromptContext != nil {
		client.PromptContext = *p.PromptContext
	}
	if p.SpreadsheetRef != nil {
		client.SpreadsheetRef = *p.SpreadsheetRef
	}
	if p.AdsTabName != nil {
		client.AdsTabName = *p.AdsTabName
	}
	if p.MetaTabName != nil {
		client.MetaTabName = *p.MetaTabName
	}
	return client
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}
