package emu

// WordPort is a word-granular, big-endian memory interface. Memory and the
// timing caches implement it.
type WordPort interface {
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr, value uint32) error
}

// LoadStoreUnit implements LW and SW against a word port.
type LoadStoreUnit struct {
	port WordPort
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to the given port.
func NewLoadStoreUnit(port WordPort) *LoadStoreUnit {
	return &LoadStoreUnit{port: port}
}

// EffectiveAddress computes base + sign-extended offset.
func EffectiveAddress(base uint32, offset int32) uint32 {
	return base + uint32(offset)
}

// LW performs a word load: mem[base + offset].
func (lsu *LoadStoreUnit) LW(base uint32, offset int32) (uint32, error) {
	return lsu.port.ReadWord(EffectiveAddress(base, offset))
}

// SW performs a word store: mem[base + offset] = value.
func (lsu *LoadStoreUnit) SW(base uint32, offset int32, value uint32) error {
	return lsu.port.WriteWord(EffectiveAddress(base, offset), value)
}
