//go:build !unix

package main

import "errors"

func restartProcess() error {
	return errors.New("reboot is not supported on this platform; start puara again")
}
