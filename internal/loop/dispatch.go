package loop

import (
	"fmt"
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/memory"
)

// extractCommand pulls the execute_command tool call's command and cwd out
// of its freeform arguments map. cwd defaults to workingDirectory when the
// argument is absent or empty; a given cwd is returned as written, relative
// paths included.
func extractCommand(toolCall agentcore.ToolCall, workingDirectory string) (command, cwd string, err error) {
	raw, ok := toolCall.Arguments["command"]
	if !ok {
		return "", "", fmt.Errorf("execute_command: missing required argument %q", "command")
	}
	command, ok = raw.(string)
	if !ok || strings.TrimSpace(command) == "" {
		return "", "", fmt.Errorf("execute_command: %q must be a non-empty string", "command")
	}
	cwd = workingDirectory
	if rawCwd, ok := toolCall.Arguments["cwd"].(string); ok && rawCwd != "" {
		cwd = rawCwd
	}
	return command, cwd, nil
}

// searchSessionMessages implements the search_session_messages tool: a
// substring search over the in-memory message log's content, newest first.
func searchSessionMessages(log *memory.Log, toolCall agentcore.ToolCall) *agentcore.ToolResult {
	query, _ := toolCall.Arguments["query"].(string)
	if query == "" {
		return &agentcore.ToolResult{Success: false, Error: "search_session_messages: missing required argument \"query\""}
	}
	messages := log.Messages()
	var matches []string
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.Contains(messages[i].Content, query) {
			matches = append(matches, fmt.Sprintf("[%s] %s", messages[i].Role, messages[i].Content))
		}
	}
	if len(matches) == 0 {
		return &agentcore.ToolResult{Success: true, Output: "no messages matched"}
	}
	return &agentcore.ToolResult{Success: true, Output: strings.Join(matches, "\n---\n")}
}

// writeSessionMessage implements the write_session_message tool: appends a
// tool-authored note to the message log without running a shell command.
func writeSessionMessage(log *memory.Log, toolCall agentcore.ToolCall) *agentcore.ToolResult {
	content, _ := toolCall.Arguments["content"].(string)
	if content == "" {
		return &agentcore.ToolResult{Success: false, Error: "write_session_message: missing required argument \"content\""}
	}
	log.AddMessage(memory.Message{Role: memory.RoleTool, Content: content})
	return &agentcore.ToolResult{Success: true, Output: "message recorded"}
}
