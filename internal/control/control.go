// Package control publishes the state of a served layer through a
// memory-mapped file, so other processes can notice reloads by polling the
// generation without talking HTTP.
package control

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	BlockSize = 4096       // 1 page
	Magic     = 0x53434252 // 'SCBR'
	Version   = 1
)

// Block is the layout of the control file.
type Block struct {
	Magic      uint32
	Version    uint32
	Generation uint64 // Atomic
	FileSize   int64
	FPS        float64
	FilePath   [256]byte
	Padding    [BlockSize - 288]byte
}

// Controller owns a mapped control file.
type Controller struct {
	path string
	file *os.File
	data []byte
	ptr  *Block
}

// OpenOrCreate maps the control file at path, creating it when missing.
func OpenOrCreate(path string) (*Controller, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open control file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.Size() < BlockSize {
		if err := f.Truncate(BlockSize); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("truncate: %w", err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, BlockSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: %w", err)
	}

	ptr := (*Block)(unsafe.Pointer(&data[0]))
	switch ptr.Magic {
	case 0:
		ptr.Magic = Magic
		ptr.Version = Version
	case Magic:
	default:
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, fmt.Errorf("invalid magic: %x", ptr.Magic)
	}

	return &Controller{path: path, file: f, data: data, ptr: ptr}, nil
}

// Generation returns the published generation.
func (c *Controller) Generation() uint64 {
	return atomic.LoadUint64(&c.ptr.Generation)
}

// FilePath returns the cache file of the published layer.
func (c *Controller) FilePath() string {
	b := c.ptr.FilePath[:]
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// FPS returns the frame rate of the published layer.
func (c *Controller) FPS() float64 { return c.ptr.FPS }

// Publish records a newly served layer. The generation is stored last, so a
// reader that sees it also sees the other fields.
func (c *Controller) Publish(path string, fps float64, generation uint64) error {
	if len(path) >= len(c.ptr.FilePath) {
		return fmt.Errorf("path too long (max %d)", len(c.ptr.FilePath)-1)
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	clear(c.ptr.FilePath[:])
	copy(c.ptr.FilePath[:], path)
	c.ptr.FileSize = size
	c.ptr.FPS = fps
	atomic.StoreUint64(&c.ptr.Generation, generation)
	return nil
}

// FileSize returns the size of the published file when it was published.
func (c *Controller) FileSize() int64 { return c.ptr.FileSize }

// Close unmaps and closes the control file.
func (c *Controller) Close() error {
	if err := unix.Munmap(c.data); err != nil {
		return err
	}
	return c.file.Close()
}
