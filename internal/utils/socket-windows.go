//go:build windows

package utils

import "syscall"

func setSocketOptions(fd uintptr, bufferSize int) {
	handle := syscall.Handle(fd)
	if err := syscall.SetsockoptInt(handle, syscall.SOL_SOCKET, syscall.SO_RCVBUF, bufferSize); err != nil {
		return
	}
	syscall.SetsockoptInt(handle, syscall.SOL_SOCKET, syscall.SO_SNDBUF, bufferSize)
}
