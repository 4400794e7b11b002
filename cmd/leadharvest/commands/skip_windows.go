//go:build windows

package commands

import "os"

var skipSignal os.Signal
