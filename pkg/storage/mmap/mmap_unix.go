//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

// mmapFile maps size bytes of fd read-write. MAP_SHARED carries writes through to
// the file.
func mmapFile(fd uintptr, size int) ([]byte, error) {
	return unix.Mmap(int(fd), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// flushFile blocks until dirty pages of the mapping reach the file.
func flushFile(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
