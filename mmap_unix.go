// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package galloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawMmap asks the OS for a fresh anonymous mapping of size bytes. It is the
// sole source of raw memory for the osHeap substrate (spec §4.4/§4.5's "OS
// heap"). Adapted from the teacher's mmap_unix.go onto golang.org/x/sys/unix
// in place of the bare syscall package.
func rawMmap(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	if uintptr(unsafe.Pointer(&b[0]))&uintptr(osPageMask) != 0 {
		panic("galloc: mmap returned a non-page-aligned address")
	}

	return b, nil
}

func rawMunmap(addr unsafe.Pointer, size int) error {
	b := unsafe.Slice((*byte)(addr), size)
	return unix.Munmap(b)
}
