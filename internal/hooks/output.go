package hooks

import (
	"encoding/json"
	"fmt"
	"os"
)

// HookOutput is the JSON structure Claude Code expects on stdout from
// hooks that inject context.
type HookOutput struct {
	HookSpecificOutput struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
}

// WriteContextOutput writes a context-injection response to stdout.
func WriteContextOutput(event, context string) error {
	out := HookOutput{}
	out.HookSpecificOutput.HookEventName = event
	out.HookSpecificOutput.AdditionalContext = context
	return json.NewEncoder(os.Stdout).Encode(out)
}

// ExitError logs to stderr and exits 0 (hooks must never crash the
// host agent).
func ExitError(err error) {
	fmt.Fprintf(os.Stderr, "synapse hook: %v\n", err)
	os.Exit(0)
}
