//go:build linux

package cma

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ausocean/vpu/dma"
)

const (
	dmaBufSyncStart = 0
	dmaBufSyncEnd   = 1

	// dmaBufIoctlSync is DMA_BUF_IOCTL_SYNC from linux/dma-buf.h.
	dmaBufIoctlSync = 0x40086200
)

type dmaBufSyncArgs struct {
	Flags uint64
}

func ioctlHeapAlloc(fd int, req *heapAllocData) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(dmaHeapAllocIoctl), uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return errno
	}
	return nil
}

func dmaBufSync(fd int, direction int, flags dma.MapFlags) error {
	var syncFlags uint64
	if direction != dmaBufSyncStart {
		syncFlags |= 1 << 2 // DMA_BUF_SYNC_END (DMA_BUF_SYNC_START is 0)
	}
	if flags&dma.Read != 0 {
		syncFlags |= 1 << 0 // DMA_BUF_SYNC_READ
	}
	if flags&dma.Write != 0 {
		syncFlags |= 1 << 1 // DMA_BUF_SYNC_WRITE
	}
	args := dmaBufSyncArgs{Flags: syncFlags}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(dmaBufIoctlSync), uintptr(unsafe.Pointer(&args)))
	if errno != 0 {
		return errno
	}
	return nil
}
