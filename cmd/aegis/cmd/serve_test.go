package cmd

import "testing"

func TestServeCmdRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "serve" {
			found = true
		}
	}
	if !found {
		t.Error("serve command not registered with rootCmd")
	}
}

func TestServeCmdDescription(t *testing.T) {
	if serveCmd.Short == "" {
		t.Error("serve command missing Short description")
	}
	if serveCmd.Long == "" {
		t.Error("serve command missing Long description")
	}
}
