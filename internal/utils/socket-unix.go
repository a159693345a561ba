//go:build linux || darwin

package utils

import "syscall"

// setSocketOptions widens the kernel buffers of a dialed socket; failures leave OS defaults.
func setSocketOptions(fd uintptr, bufferSize int) {
	if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, bufferSize); err != nil {
		return
	}
	syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, bufferSize)
}
