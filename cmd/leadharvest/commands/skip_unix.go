//go:build !windows

package commands

import (
	"os"
	"syscall"
)

var skipSignal os.Signal = syscall.SIGUSR1
