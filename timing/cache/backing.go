package cache

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
)

// BackingStore is the next level in the memory hierarchy. Lines move to and
// from it as whole blocks.
type BackingStore interface {
	Size() uint32
	ReadBlock(addr uint32, dst []byte) error
	WriteBlock(addr uint32, src []byte) error
}

var _ BackingStore = (*emu.Memory)(nil)

// checkWordAddr reports whether addr is a valid word address in a store of
// the given size.
func checkWordAddr(addr, size uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("%w: 0x%08x", emu.ErrUnalignedAccess, addr)
	}
	if uint64(addr)+4 > uint64(size) {
		return fmt.Errorf("%w: 0x%08x (size 0x%x)", emu.ErrAddressOutOfRange, addr, size)
	}
	return nil
}
