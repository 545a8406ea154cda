package cli

import "testing"

func TestActionCmd_Flags(t *testing.T) {
	for _, action := range []string{"confirm", "escalate", "resolve"} {
		cmd := actionCmd(action, "")
		if cmd.Name() != action {
			t.Errorf("Name() = %q, want %q", cmd.Name(), action)
		}
		for _, flag := range []string{"notes", "queue"} {
			if cmd.Flags().Lookup(flag) == nil {
				t.Errorf("%s has no --%s flag", action, flag)
			}
		}
		if queued, _ := cmd.Flags().GetBool("queue"); queued {
			t.Errorf("%s --queue defaults to true", action)
		}
	}
}
