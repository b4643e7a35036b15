package report

import (
	"github.com/muesli/termenv"
)

type terminalSinkConfig struct {
	file    string
	profile *termenv.Profile
}

// TerminalSinkBuilderOption is a functional option applied during NewTerminalSink.
type TerminalSinkBuilderOption func(*terminalSinkConfig)

// WithFileName sets the name printed before line numbers until SetSource replaces it.
//
// Parameters:
//   - name: the shader file name
//
// Returns:
//   - TerminalSinkBuilderOption: a function that sets the name
func WithFileName(name string) TerminalSinkBuilderOption {
	return func(c *terminalSinkConfig) {
		c.file = name
	}
}

// WithProfile forces a colour profile. termenv.Ascii disables colour.
//
// Parameters:
//   - profile: the termenv profile
//
// Returns:
//   - TerminalSinkBuilderOption: a function that sets the profile
func WithProfile(profile termenv.Profile) TerminalSinkBuilderOption {
	return func(c *terminalSinkConfig) {
		c.profile = &profile
	}
}
