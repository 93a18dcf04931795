package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "press@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "press@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "press@example.com",
			},
			expected: true,
		},
		{
			name: "configured with TLS",
			config: Config{
				Host:      "smtp.example.com",
				Port:      "465",
				From:      "press@example.com",
				EnableTLS: true,
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderRevisionsSubmittedTemplate(t *testing.T) {
	data := RevisionsSubmittedData{
		AppName:       "Pressroom",
		RecipientName: "Alex Editor",
		SubmissionID:  42,
		SubmissionURL: "https://press.example.com/submissions/42",
	}

	html, err := renderTemplate(revisionsSubmittedTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Pressroom") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Alex Editor") {
		t.Error("template should contain recipient name")
	}
	if !strings.Contains(html, "https://press.example.com/submissions/42") {
		t.Error("template should contain submission URL")
	}
	if !strings.Contains(html, "submission 42") {
		t.Error("template should mention the submission")
	}
}
