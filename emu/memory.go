package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultMemorySize is the size of a program context's flat memory.
const DefaultMemorySize = 0x1000000

var (
	// ErrAddressOutOfRange is returned for accesses beyond the end of memory.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrUnalignedAccess is returned for word accesses not on a 4-byte boundary.
	ErrUnalignedAccess = errors.New("unaligned word access")
)

// Memory is a flat, byte-addressed, big-endian memory.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *Memory) check(addr, n uint32) error {
	if uint64(addr)+uint64(n) > uint64(len(m.data)) {
		return fmt.Errorf("%w: 0x%08x (size 0x%x)", ErrAddressOutOfRange, addr, len(m.data))
	}
	return nil
}

func (m *Memory) checkWord(addr uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("%w: 0x%08x", ErrUnalignedAccess, addr)
	}
	return m.check(addr, 4)
}

// ReadWord reads the aligned word at addr.
func (m *Memory) ReadWord(addr uint32) (uint32, error) {
	if err := m.checkWord(addr); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(m.data[addr:]), nil
}

// WriteWord writes value to the aligned word at addr.
func (m *Memory) WriteWord(addr, value uint32) error {
	if err := m.checkWord(addr); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(m.data[addr:], value)
	return nil
}

// Read8 reads a single byte.
func (m *Memory) Read8(addr uint32) (byte, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// Write8 writes a single byte.
func (m *Memory) Write8(addr uint32, value byte) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// ReadBlock copies len(dst) bytes starting at addr into dst.
func (m *Memory) ReadBlock(addr uint32, dst []byte) error {
	if err := m.check(addr, uint32(len(dst))); err != nil {
		return err
	}
	copy(dst, m.data[addr:])
	return nil
}

// WriteBlock copies src into memory starting at addr.
func (m *Memory) WriteBlock(addr uint32, src []byte) error {
	if err := m.check(addr, uint32(len(src))); err != nil {
		return err
	}
	copy(m.data[addr:], src)
	return nil
}

// LoadImage copies a raw big-endian program image into memory at addr.
func (m *Memory) LoadImage(addr uint32, image []byte) error {
	if err := m.WriteBlock(addr, image); err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	return nil
}

// LoadWords stores consecutive instruction or data words starting at addr.
func (m *Memory) LoadWords(addr uint32, words []uint32) error {
	for i, w := range words {
		if err := m.WriteWord(addr+uint32(i)*4, w); err != nil {
			return fmt.Errorf("loading word %d: %w", i, err)
		}
	}
	return nil
}

// Bytes returns the backing storage. Callers must not modify it.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Clone returns an independent copy of the memory.
func (m *Memory) Clone() *Memory {
	data := make([]byte, len(m.data))
	copy(data, m.data)
	return &Memory{data: data}
}
