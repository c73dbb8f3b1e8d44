package carrello

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultKey is the name of the durable entry holding the cart.
const DefaultKey = "restaurant_cart"

var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a single named durable entry. Get returns ErrSlotEmpty when nothing
// was ever written.
type Slot interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
}

// Pinger is implemented by slots backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

var _ Slot = (*MemorySlot)(nil)

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (m *MemorySlot) Get(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemorySlot) Put(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// FileSlot keeps the entry in a single file, replaced atomically on Put.
type FileSlot struct {
	path string
}

var _ Slot = (*FileSlot)(nil)

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

func (f *FileSlot) Get(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart file: %w", err)
	}
	return data, nil
}

func (f *FileSlot) Put(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cart directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cart file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Ping checks that the directory holding the file is reachable.
func (f *FileSlot) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}
