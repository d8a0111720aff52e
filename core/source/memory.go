package source

import (
	"fmt"
	"sync"

	"github.com/tristendillon/nixbundle/core/models"
)

// Memory serves files from a map and counts reads per identity. It backs
// tests and callers that bundle generated sources without touching disk.
type Memory struct {
	mu    sync.Mutex
	files map[models.FileIdentity]string
	reads map[models.FileIdentity]int
}

func NewMemory(files map[models.FileIdentity]string) *Memory {
	m := &Memory{
		files: make(map[models.FileIdentity]string, len(files)),
		reads: make(map[models.FileIdentity]int),
	}
	for id, content := range files {
		m.files[id] = content
	}
	return m
}

// SetFile adds or replaces a file.
func (m *Memory) SetFile(id models.FileIdentity, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[id] = content
}

func (m *Memory) Exists(id models.FileIdentity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[id]
	return ok, nil
}

func (m *Memory) ReadFile(id models.FileIdentity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[id]
	if !ok {
		return "", fmt.Errorf("%s: no such file", id)
	}
	m.reads[id]++
	return content, nil
}

// Reads returns how many times id has been read.
func (m *Memory) Reads(id models.FileIdentity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[id]
}

// TotalReads returns the number of reads across all files.
func (m *Memory) TotalReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.reads {
		total += n
	}
	return total
}
