package prompt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flitsinc/go-llms/content"
)

const DefaultSystemPrompt = `You are agentd, a conversational agent runtime that uses tools to accomplish tasks.

Core rules:
- Use exec for shell commands and file I/O inside your workspace.
- Use send_message to deliver a message to an external channel (feishu, discord).
- Answer the user directly in plain text; tool output is for your own use.

Reply style:
- Be concise. Short sentences suit spoken playback.
- Do not use markdown lists or headings in replies.
`

// personaFiles are the workspace documents layered onto the base prompt,
// highest priority first. Missing files are simply skipped.
var personaFiles = []struct {
	name     string
	priority int
}{
	{"SOUL.md", 40},
	{"AGENTS.md", 30},
	{"USER.md", 20},
}

// Loader composes the system prompt from the static base plus the workspace
// persona files and the long-term memory document. Files are re-read on
// every call so edits take effect without a restart.
type Loader struct {
	Workspace string
}

func (l *Loader) System() content.Content {
	b := NewBuilder()
	b.Add(Block{ID: "base", Priority: 100, Content: DefaultSystemPrompt})
	for _, f := range personaFiles {
		b.Add(Block{ID: f.name, Priority: f.priority, Content: l.readFile(f.name)})
	}
	if mem := l.readFile(filepath.Join("memory", "MEMORY.md")); mem != "" {
		b.Add(Block{ID: "memory", Priority: 10, Content: "Long-term memory:\n\n" + mem})
	}
	return content.FromText(b.Build())
}

func (l *Loader) readFile(name string) string {
	if l.Workspace == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(l.Workspace, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
