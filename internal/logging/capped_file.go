package logging

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

const defaultMaxMB = 10

// cappedFile appends to path until the next write would push it past
// maxBytes, then moves it aside to path+".1" and starts over. One previous
// generation is kept.
type cappedFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	f        *os.File
	written  int64
}

func openCappedFile(path string, maxMB int) (*cappedFile, error) {
	if maxMB <= 0 {
		maxMB = defaultMaxMB
	}
	c := &cappedFile{path: path, maxBytes: int64(maxMB) << 20}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *cappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		if err := c.open(); err != nil {
			return 0, err
		}
	}
	if c.written > 0 && c.written+int64(len(p)) > c.maxBytes {
		if err := c.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := c.f.Write(p)
	c.written += int64(n)
	return n, err
}

func (c *cappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

func (c *cappedFile) rotate() error {
	if c.f != nil {
		_ = c.f.Close()
		c.f = nil
	}
	if err := os.Rename(c.path, c.path+".1"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return c.open()
}

func (c *cappedFile) open() error {
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	c.f = f
	c.written = info.Size()
	return nil
}
