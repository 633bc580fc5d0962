package hooks

func handleEnd(client *Client, input *HookInput) {
	// Session end and stop converge on the same plasticity pass; the
	// server treats a repeat call on an already-ended session as a no-op.
	if _, err := client.Post("/api/projects/"+input.ProjectID()+"/session/end", nil); err != nil {
		ExitError(err)
		return
	}
}
