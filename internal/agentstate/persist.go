package agentstate

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// Load reads a Context from path on fs. Unknown fields are rejected and the
// decoded value is validated before being returned, matching
// json_state.go/json_context.go's discipline of never trusting an on-disk
// record without both checks.
func Load(fs afero.Fs, path string) (*Context, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open context state: %w", err)
	}
	defer f.Close()

	var ctx Context
	decoder := json.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&ctx); err != nil {
		return nil, fmt.Errorf("cannot decode context state: %w", err)
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("context state validation failed: %w", err)
	}
	return &ctx, nil
}

// Save writes ctx to path on fs atomically: it is validated, marshaled, and
// written to a temp file which is then renamed over the destination so a
// reader never observes a partially-written record.
func Save(fs afero.Fs, path string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid context state: %w", err)
	}
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal context state: %w", err)
	}
	tempPath := path + ".tmp"
	if err := afero.WriteFile(fs, tempPath, data, 0o644); err != nil {
		return fmt.Errorf("cannot write temp context state: %w", err)
	}
	if err := fs.Rename(tempPath, path); err != nil {
		_ = fs.Remove(tempPath)
		return fmt.Errorf("cannot rename temp context state: %w", err)
	}
	return nil
}
