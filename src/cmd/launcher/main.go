package main

import (
	"os"
	"runtime"
)

func init() {
	// Keep main on the process's first thread for the tray event loop
	runtime.LockOSThread()
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
