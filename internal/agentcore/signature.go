package agentcore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// canonicalize produces a stable JSON encoding of v: keys sorted, undefined
// (nil map/slice) entries omitted, recursing into nested arrays/objects.
// This is the one canonical encoder every signature in the system goes
// through so hashes are comparable across processes and languages.
func canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]canonKV, 0, len(keys))
		for _, k := range keys {
			if val[k] == nil {
				continue
			}
			ordered = append(ordered, canonKV{Key: k, Value: canonicalize(val[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return v
	}
}

type canonKV struct {
	Key   string
	Value any
}

// MarshalJSON renders canonKV as a single-entry object so a slice of them
// serializes as an ordered JSON object without relying on Go map iteration.
func (kv canonKV) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	keyJSON, err := json.Marshal(kv.Key)
	if err != nil {
		return nil, err
	}
	valJSON, err := json.Marshal(kv.Value)
	if err != nil {
		return nil, err
	}
	buf = append(buf, keyJSON...)
	buf = append(buf, ':')
	buf = append(buf, valJSON...)
	buf = append(buf, '}')
	return buf, nil
}

// StableJSON returns the canonical JSON encoding of v: sorted keys, no
// undefined entries, deterministic across platforms.
func StableJSON(v any) (string, error) {
	b, err := json.Marshal(canonicalize(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BuildToolCallSignature returns the stable signature for a tool invocation,
// keyed by tool name and its canonical argument encoding. For
// execute_command, the command is trimmed and cwd resolved against
// workingDirectory before hashing.
func BuildToolCallSignature(name string, args map[string]any, workingDirectory string) string {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = v
	}
	if name == "execute_command" {
		if cmd, ok := normalized["command"].(string); ok {
			normalized["command"] = strings.TrimSpace(cmd)
		}
		cwd, _ := normalized["cwd"].(string)
		resolved := workingDirectory
		if cwd != "" {
			resolved = filepath.Clean(filepath.Join(workingDirectory, cwd))
		}
		normalized["cwd"] = resolved
	}
	payload, _ := StableJSON(map[string]any{"tool": name, "args": normalized})
	return hashHex(payload)
}

var (
	runIdentifierPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	artifactLinePattern  = regexp.MustCompile(`(?m)^stdout:.*$`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// BuildToolLoopSignature produces the signature used for post-execution
// repetition detection: tool name, normalized arguments, success, and
// output normalized to strip per-run identifiers before truncating to 400
// chars, so semantically-identical retries collapse to the same signature.
func BuildToolLoopSignature(toolName string, argsObject map[string]any, output string, success bool) string {
	normalizedOutput := runIdentifierPattern.ReplaceAllString(output, "<id>")
	normalizedOutput = artifactLinePattern.ReplaceAllString(normalizedOutput, "stdout: <artifact>")
	normalizedOutput = whitespacePattern.ReplaceAllString(normalizedOutput, " ")
	normalizedOutput = strings.TrimSpace(normalizedOutput)
	if len(normalizedOutput) > 400 {
		normalizedOutput = normalizedOutput[:400]
	}
	argsJSON, _ := StableJSON(argsObject)
	payload, _ := StableJSON(map[string]any{
		"tool":    toolName,
		"args":    argsJSON,
		"success": success,
		"output":  normalizedOutput,
	})
	return hashHex(payload)
}

// BuildCommandApprovalSignature is the stable signature used as the
// approval-rule key: hash(cwd-resolved command).
func BuildCommandApprovalSignature(cwd, command string) string {
	resolved := filepath.Clean(cwd)
	payload, _ := StableJSON(map[string]any{
		"cwd":     resolved,
		"command": strings.TrimSpace(command),
	})
	return hashHex(payload)
}
