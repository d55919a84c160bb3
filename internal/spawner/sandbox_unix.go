//go:build !windows

package spawner

import "os/exec"

// applySandboxLimits sets a best-effort resource restriction: a fresh
// process group (already set by setProcAttr) is reused here; a real
// capability drop or RLIMIT_NPROC cap would require either running as a
// distinct low-privilege user or a syscall.Rlimit poke before exec, which
// Go's os/exec does not expose per-child without a wrapper binary. This is
// therefore bookkeeping only, documented as a gap rather than enforced.
func applySandboxLimits(cmd *exec.Cmd, maxProcesses uint64) {
	_ = maxProcesses
}
