//go:build !windows

package toolproc

import "syscall"

var terminateSignal = syscall.SIGTERM
