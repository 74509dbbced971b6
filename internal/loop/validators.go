package loop

import "strings"

// validatorBinaries are the leading command tokens recognized as a
// completion-validation command for lastSuccessfulValidationStep tracking.
var validatorBinaries = map[string]bool{
	"bun": true, "npm": true, "pnpm": true, "yarn": true,
	"cargo": true, "go": true, "python": true, "python3": true,
	"pytest": true, "ruff": true, "eslint": true, "tsc": true,
	"vitest": true, "jest": true,
}

// IsValidatorCommand reports whether command's leading token is a known
// build/test/lint validator binary.
func IsValidatorCommand(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	bin := fields[0]
	if idx := strings.LastIndexByte(bin, '/'); idx >= 0 {
		bin = bin[idx+1:]
	}
	return validatorBinaries[bin]
}

// readonlyInspectionBinaries matches the leading token of a read-only
// inspection command exempted from doom-loop blocking and counted toward
// read-only stagnation.
var readonlyInspectionBinaries = map[string]bool{
	"ls": true, "cat": true, "wc": true, "head": true, "tail": true,
	"rg": true, "grep": true, "stat": true, "find": true,
}

// IsReadonlyInspectionCommand reports whether command is one of the
// recognized read-only inspection commands: a bare binary from
// readonlyInspectionBinaries, or "git diff"/"git status".
func IsReadonlyInspectionCommand(command string) bool {
	trimmed := strings.TrimSpace(command)
	if strings.HasPrefix(trimmed, "git diff") || strings.HasPrefix(trimmed, "git status") {
		return true
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	return readonlyInspectionBinaries[fields[0]]
}
