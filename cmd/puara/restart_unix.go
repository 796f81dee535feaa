//go:build unix

package main

import (
	"fmt"
	"os"
	"syscall"
)

// restartProcess replaces the running process with a fresh copy of itself.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}
	return nil
}
