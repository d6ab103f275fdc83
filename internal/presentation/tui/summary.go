package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/bindery/pkg/registry"
)

// Summary formats the counters of one context root as a markdown table.
func Summary(stats registry.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Context `%s` (%s)\n\n", stats.RootID, stats.State)
	b.WriteString("| index | entries |\n|---|---|\n")
	rows := []struct {
		name string
		n    int
	}{
		{"value listeners", stats.Listeners},
		{"array listeners", stats.ArrayListeners},
		{"identifiers", stats.Identifiers},
		{"dependencies", stats.Dependencies},
		{"cached values", stats.Cached},
		{"traps", stats.Traps},
		{"tracked arrays", stats.TrackedArrays},
		{"index watchers", stats.Watchers},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %d |\n", r.name, r.n)
	}
	return b.String()
}
