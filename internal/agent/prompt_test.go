package agent

import "testing"

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name string
		in   Instructions
		want string
	}{
		{
			name: "all sections",
			in: Instructions{
				Background:         []string{"be nice"},
				Steps:              []string{"greet", "answer"},
				OutputInstructions: []string{"short replies"},
			},
			want: "# IDENTITY and PURPOSE\n- be nice\n\n# INTERNAL ASSISTANT STEPS\n- greet\n- answer\n\n# OUTPUT INSTRUCTIONS\n- short replies",
		},
		{
			name: "empty sections skipped",
			in:   Instructions{Steps: []string{"greet", "  "}},
			want: "# INTERNAL ASSISTANT STEPS\n- greet",
		},
		{
			name: "nothing",
			in:   Instructions{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SystemPrompt(tt.in); got != tt.want {
				t.Errorf("SystemPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}
