// Package graph renders archived runs as Mermaid flowcharts for quick
// inspection of where a pipeline degraded.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

// RenderRun produces a Mermaid flowchart of a run's steps: the trigger as a
// circle, one node per step colored by terminal status, degradation reasons
// inlined on the label.
func RenderRun(record domain.RunRecord) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString(fmt.Sprintf("    trigger((\"%s\"))\n", escapeLabel(record.Workflow)))

	prev := "trigger"
	for _, step := range record.Steps {
		id := sanitizeMermaidID(step.StepID)

		label := escapeLabel(step.StepID)
		if step.Reason != "" {
			label = fmt.Sprintf("%s <br/> %s", label, escapeLabel(step.Reason))
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))
		prev = id
	}

	sb.WriteString("\n")
	// Force black text for contrast regardless of the viewer's theme.
	sb.WriteString("    classDef completed fill:#dcfce7,stroke:#166534,color:#000;\n")
	sb.WriteString("    classDef degraded fill:#fef9c3,stroke:#a16207,color:#000;\n")
	sb.WriteString("    classDef failed fill:#fee2e2,stroke:#991b1b,color:#000;\n")

	for _, step := range record.Steps {
		id := sanitizeMermaidID(step.StepID)
		switch step.Status {
		case domain.StepCompleted:
			sb.WriteString(fmt.Sprintf("    class %s completed;\n", id))
		case domain.StepDegraded:
			sb.WriteString(fmt.Sprintf("    class %s degraded;\n", id))
		case domain.StepFailed:
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", id))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
