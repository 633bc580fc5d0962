package hooks

func handleStop(client *Client, input *HookInput) {
	if input.StopHookActive {
		return // avoid re-entrant stop loops
	}
	if _, err := client.Post("/api/projects/"+input.ProjectID()+"/session/end", nil); err != nil {
		ExitError(err)
		return
	}
}
