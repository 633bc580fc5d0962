package hooks

import "encoding/json"

func handleStart(client *Client, input *HookInput) {
	data, err := client.Post("/api/projects/"+input.ProjectID()+"/session/init", nil)
	if err != nil {
		// Degrade gracefully — return empty context
		WriteContextOutput("SessionStart", "")
		return
	}

	var resp struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		WriteContextOutput("SessionStart", "")
		return
	}

	WriteContextOutput("SessionStart", resp.Context)
}
