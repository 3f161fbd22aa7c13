package agent

import "strings"

// Instructions are the three free-text lists every bot is configured with.
type Instructions struct {
	Background         []string
	Steps              []string
	OutputInstructions []string
}

// SystemPrompt renders the instructions as markdown sections. Empty lists are skipped.
func SystemPrompt(in Instructions) string {
	sections := []struct {
		title string
		items []string
	}{
		{"IDENTITY and PURPOSE", in.Background},
		{"INTERNAL ASSISTANT STEPS", in.Steps},
		{"OUTPUT INSTRUCTIONS", in.OutputInstructions},
	}

	var parts []string
	for _, s := range sections {
		var b strings.Builder
		for _, item := range s.items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteByte('\n')
		}
		if b.Len() == 0 {
			continue
		}
		parts = append(parts, "# "+s.title+"\n"+b.String())
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
