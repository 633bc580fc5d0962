package hooks

import (
	"encoding/json"
	"strings"
)

// maxDetailSize caps the event detail sent to the server.
const maxDetailSize = 2 * 1024

// errorMarkers is a cheap heuristic for spotting failed tool runs in
// the raw response payload.
var errorMarkers = []string{`"is_error":true`, `"error":`, "command failed", "permission denied"}

func handleTool(client *Client, input *HookInput) {
	if input.ShouldSkipTool() {
		return
	}

	detail := string(input.ToolResponse)
	if len(detail) > maxDetailSize {
		detail = detail[:maxDetailSize]
	}

	event := map[string]string{
		"category":  "tool",
		"tool_name": input.ToolName,
		"detail":    detail,
	}
	lower := strings.ToLower(detail)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			event["category"] = "error"
			event["subcategory"] = "tool"
			break
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		ExitError(err)
		return
	}

	if _, err := client.Post("/api/projects/"+input.ProjectID()+"/events", body); err != nil {
		ExitError(err)
		return
	}
}
