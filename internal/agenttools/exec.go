package agenttools

import (
	"os/exec"
	"strings"

	llmtools "github.com/flitsinc/go-llms/tools"
)

type ExecParams struct {
	Command string `json:"command" description:"Shell command to run in the workspace"`
}

// ExecTool runs a shell command in the workspace directory and returns its
// combined output. No per-call timeout is imposed; the turn's iteration
// budget is the only bound.
func ExecTool(workspace string) llmtools.Tool {
	return llmtools.Func(
		"Exec",
		"Run a shell command in the workspace and return its output",
		"exec",
		func(r llmtools.Runner, p ExecParams) llmtools.Result {
			command := strings.TrimSpace(p.Command)
			if command == "" {
				return llmtools.Errorf("command is required")
			}

			cmd := exec.CommandContext(r.Context(), "sh", "-c", command)
			cmd.Dir = workspace
			out, err := cmd.CombinedOutput()
			output := strings.TrimSpace(string(out))
			if err != nil {
				if output != "" {
					return llmtools.Errorf("exec failed: %v: %s", err, output)
				}
				return llmtools.Errorf("exec failed: %v", err)
			}
			return llmtools.Success(map[string]any{"output": output})
		},
	)
}
