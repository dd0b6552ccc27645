//go:build windows

package toolproc

import "os"

var terminateSignal = os.Interrupt
