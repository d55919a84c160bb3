//go:build windows

package spawner

import "os/exec"

// applySandboxLimits is a no-op on Windows; job-object based resource
// limits are not implemented (see process_windows.go).
func applySandboxLimits(cmd *exec.Cmd, maxProcesses uint64) {
	_ = maxProcesses
}
