package main

// CLIResult is the top-level JSON envelope for plan, check and explain.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}
