// Package prompts assembles the text sent to the model each step.
package prompts

import (
	"fmt"
	"strings"
)

// Builder composes a prompt from fragments with simple {{key}} substitution.
type Builder struct {
	fragments []string
	variables map[string]string
}

// NewBuilder creates a builder seeded with the base fragment.
func NewBuilder(base string) *Builder {
	return &Builder{
		fragments: []string{base},
		variables: make(map[string]string),
	}
}

// Add appends a fragment. Empty fragments are dropped.
func (b *Builder) Add(text string) *Builder {
	if text != "" {
		b.fragments = append(b.fragments, text)
	}
	return b
}

// Set sets a variable for template substitution.
func (b *Builder) Set(key, value string) *Builder {
	b.variables[key] = value
	return b
}

// Build joins the fragments and substitutes variables.
func (b *Builder) Build() string {
	result := strings.Join(b.fragments, "\n\n")
	for key, value := range b.variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
