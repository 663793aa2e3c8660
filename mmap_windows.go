// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

// handleMap recovers the file-mapping handle that backs a given address, so
// rawMunmap can close it after unmapping. mmap on Windows is a two-step
// process (CreateFileMapping then MapViewOfFile); there is no handle-free
// equivalent of POSIX munmap.
var handleMap = map[uintptr]windows.Handle{}

func rawMmap(size int) ([]byte, error) {
	maxSizeHigh := uint32(uint64(size) >> 32)
	maxSizeLow := uint32(uint64(size) & 0xFFFFFFFF)

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return nil, err
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}

	if addr&uintptr(osPageMask) != 0 {
		panic("galloc: mmap returned a non-page-aligned address")
	}

	handleMap[addr] = h
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func rawMunmap(addr unsafe.Pointer, size int) error {
	a := uintptr(addr)
	if err := windows.UnmapViewOfFile(a); err != nil {
		return err
	}

	handle, ok := handleMap[a]
	if !ok {
		return errors.New("galloc: unmap of unknown base address")
	}
	delete(handleMap, a)

	return windows.CloseHandle(handle)
}
