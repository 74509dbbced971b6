package agentstate

import (
	"strings"
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestScriptCatalogSummaryEmpty(t *testing.T) {
	ctx := CreateInitialContext("do a thing", 10)
	if got := ctx.ScriptCatalogSummary(); got != "No scripts registered yet." {
		t.Fatalf("expected empty-catalog message, got %q", got)
	}
}

func TestScriptCatalogSummaryIsSortedByID(t *testing.T) {
	ctx := CreateInitialContext("do a thing", 10)
	ctx = UpdateScriptCatalog(ctx, map[string]agentcore.ScriptCatalogEntry{
		"zebra": {ID: "zebra", Path: "scripts/zebra.sh", Purpose: "stripe things", TimesUsed: 2, LastTouchedStep: 3},
		"alpha": {ID: "alpha", Path: "scripts/alpha.sh", Purpose: "start things", TimesUsed: 1, LastTouchedStep: 1},
	})

	summary := ctx.ScriptCatalogSummary()
	alphaIdx := strings.Index(summary, "alpha")
	zebraIdx := strings.Index(summary, "zebra")
	if alphaIdx == -1 || zebraIdx == -1 || alphaIdx > zebraIdx {
		t.Fatalf("expected alpha before zebra in summary, got:\n%s", summary)
	}
	if !strings.Contains(summary, "scripts/alpha.sh") || !strings.Contains(summary, "start things") {
		t.Fatalf("expected entry fields rendered, got:\n%s", summary)
	}
}
