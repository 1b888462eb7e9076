package generator

import (
	"fmt"
	"strings"
)

// Prompt is the message pair sent to the LLM for one section.
type Prompt struct {
	System string
	User   string
}

// BuildSectionPrompt interpolates the request and section into the user prompt template.
func BuildSectionPrompt(system string, section SectionSpec, req GenerationRequest) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Тема дипломної роботи: %s\n", req.Topic))
	sb.WriteString(fmt.Sprintf("Спеціальність: %s\n", req.Specialty))
	sb.WriteString(fmt.Sprintf("Бажаний обсяг (сторінки): %d\n", req.Pages))
	sb.WriteString(fmt.Sprintf("Напиши розділ: '%s'. %s ", section.Title, section.Instruction))
	sb.WriteString("Стиль — український академічний, лише зв'язні абзаци, без списків. Якщо потрібна таблиця, використовуй Markdown.")

	return Prompt{
		System: system,
		User:   sb.String(),
	}
}
