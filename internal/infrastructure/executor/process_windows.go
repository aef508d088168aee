//go:build windows

package executor

import (
	"os/exec"
)

func setupProcessGroup(*exec.Cmd) {}

// Windows has no SIGTERM for console processes; both steps kill.
func terminateGroup(cmd *exec.Cmd) error {
	return killGroup(cmd)
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
