package hooks

import (
	"encoding/json"
	"fmt"
	"strings"
)

func handleSubmit(client *Client, input *HookInput) {
	if input.Prompt == "" {
		return
	}

	body, err := json.Marshal(map[string]any{
		"query":       input.Prompt,
		"recent_tags": []string{},
	})
	if err != nil {
		ExitError(err)
		return
	}

	data, err := client.Post("/api/projects/"+input.ProjectID()+"/turn", body)
	if err != nil {
		return // silent — the turn must not block on memory
	}

	var resp struct {
		Checkpoint bool `json:"checkpoint"`
		Memories   []struct {
			Record struct {
				Type     string `json:"type"`
				Severity string `json:"severity"`
				Title    string `json:"title"`
				Rule     string `json:"rule"`
			} `json:"record"`
		} `json:"memories"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	if len(resp.Memories) == 0 && !resp.Checkpoint {
		return
	}

	var b strings.Builder
	if len(resp.Memories) > 0 {
		b.WriteString("## Relevant memories\n\n")
		for _, m := range resp.Memories {
			fmt.Fprintf(&b, "- [%s/%s] %s", m.Record.Type, m.Record.Severity, m.Record.Title)
			if m.Record.Rule != "" {
				fmt.Fprintf(&b, " — %s", m.Record.Rule)
			}
			b.WriteString("\n")
		}
	}
	if resp.Checkpoint {
		b.WriteString("\nConsolidation checkpoint: summarize durable lessons from this session before continuing.\n")
	}

	WriteContextOutput("UserPromptSubmit", b.String())
}
