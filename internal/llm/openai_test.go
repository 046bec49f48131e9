package llm

import (
	"testing"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/schema"
)

func TestNewOpenAIClient(t *testing.T) {
	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "key", Model: "gpt-4o-mini"}, nil)
	if c.model != "gpt-4o-mini" {
		t.Errorf("unexpected model: %s", c.model)
	}
	if chatTemperature != 0.2 {
		t.Errorf("unexpected chat temperature: %v", chatTemperature)
	}
}

func TestToOpenAIMessages(t *testing.T) {
	converted := toOpenAIMessages([]schema.ChatMessage{
		{Role: schema.RoleSystem, Content: "s"},
		{Role: schema.RoleUser, Content: "u"},
		{Role: schema.RoleAssistant, Content: "a"},
	})
	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}
	if converted[0].Role != "system" || converted[1].Role != "user" || converted[2].Role != "assistant" {
		t.Errorf("roles mangled: %+v", converted)
	}
	if converted[1].Content != "u" {
		t.Errorf("content mangled: %+v", converted[1])
	}
}
