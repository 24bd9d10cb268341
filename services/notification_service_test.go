package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	s := &NotificationService{}

	got := s.renderTemplate("{{username}} completed {{day}} in {{title}}", map[string]any{
		"username": "maya",
		"day":      "2025-06-10",
		"title":    "Morning Run",
	})
	assert.Equal(t, "maya completed 2025-06-10 in Morning Run", got)
}

func TestRenderTemplateMissingKeysLeftAsIs(t *testing.T) {
	s := &NotificationService{}

	got := s.renderTemplate("You hit a {{days}}-day streak!", map[string]any{})
	assert.Equal(t, "You hit a {{days}}-day streak!", got)
}

func TestRenderTemplateNonStringValues(t *testing.T) {
	s := &NotificationService{}

	got := s.renderTemplate("You hit a {{days}}-day streak!", map[string]any{"days": 7})
	assert.Equal(t, "You hit a 7-day streak!", got)
}
