package model

import "fmt"

// Persona is the behavioral configuration of an assistant. The three
// fields are concatenated into a single description string for prompts.
type Persona struct {
	Tone                   string
	Expertise              string
	AdditionalInstructions string
}

// Describe renders the persona as the single string consumed by prompts
func (p Persona) Describe() string {
	s := fmt.Sprintf("Tone: %s, Expertise: %s.", p.Tone, p.Expertise)
	if p.AdditionalInstructions != "" {
		s += " " + p.AdditionalInstructions
	}
	return s
}
