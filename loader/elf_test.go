package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
)

var _ = Describe("Loader", func() {
	var tempDir string

	code := wordsToBytes(
		insts.ADDIU(insts.RegV0, insts.RegZero, 42),
		insts.JR(insts.RegRA),
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		Context("with a valid MIPS ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				writeMIPSELF(elfPath, 8, 0x400, []segmentSpec{
					{addr: 0x400, data: code, memSize: uint32(len(code)), flags: 0x5},
				})
			})

			It("should extract the entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x400)))
				Expect(prog.Path).To(Equal(elfPath))
			})

			It("should read segment contents and permissions", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))

				seg := prog.Segments[0]
				Expect(seg.VirtAddr).To(Equal(uint32(0x400)))
				Expect(seg.Data).To(Equal(code))
				Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should run after loading into memory", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				mem := emu.NewMemory(0x10000)
				entry, err := prog.LoadInto(mem)
				Expect(err).NotTo(HaveOccurred())

				e := emu.NewEmulator(mem)
				e.RegFile().PC = entry
				Expect(e.Run()).To(Equal(int32(42)))
			})
		})

		Context("with a BSS segment", func() {
			It("should zero-fill memory past the file data", func() {
				elfPath := filepath.Join(tempDir, "bss.elf")
				writeMIPSELF(elfPath, 8, 0, []segmentSpec{
					{addr: 0, data: code, memSize: uint32(len(code)), flags: 0x5},
					{addr: 0x800, data: []byte{1, 2, 3, 4}, memSize: 64, flags: 0x6},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(2))
				Expect(prog.Segments[1].MemSize).To(Equal(uint32(64)))

				mem := emu.NewMemory(0x1000)
				Expect(mem.WriteWord(0x804, 0xFFFFFFFF)).To(Succeed())
				_, err = prog.LoadInto(mem)
				Expect(err).NotTo(HaveOccurred())

				Expect(mem.ReadWord(0x800)).To(Equal(uint32(0x01020304)))
				Expect(mem.ReadWord(0x804)).To(BeZero())
			})
		})

		Context("with a segment beyond memory", func() {
			It("should report the address as out of range", func() {
				elfPath := filepath.Join(tempDir, "far.elf")
				writeMIPSELF(elfPath, 8, 0x10000, []segmentSpec{
					{addr: 0x10000, data: code, memSize: uint32(len(code)), flags: 0x5},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				_, err = prog.LoadInto(emu.NewMemory(0x1000))
				Expect(err).To(MatchError(emu.ErrAddressOutOfRange))
			})
		})

		Context("with a raw image", func() {
			It("should place the words from address 0", func() {
				binPath := filepath.Join(tempDir, "simple.bin")
				Expect(os.WriteFile(binPath, code, 0o644)).To(Succeed())

				prog, err := loader.Load(binPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(BeZero())
				Expect(prog.Segments).To(HaveLen(1))

				mem := emu.NewMemory(0x1000)
				_, err = prog.LoadInto(mem)
				Expect(err).NotTo(HaveOccurred())
				Expect(mem.ReadWord(0)).To(Equal(insts.ADDIU(insts.RegV0, insts.RegZero, 42)))
			})

			It("should reject images that are not whole words", func() {
				binPath := filepath.Join(tempDir, "odd.bin")
				Expect(os.WriteFile(binPath, []byte("not a program"), 0o644)).To(Succeed())

				_, err := loader.Load(binPath)
				Expect(err).To(MatchError(ContainSubstring("multiple of 4")))
			})

			It("should reject empty files", func() {
				emptyPath := filepath.Join(tempDir, "empty.bin")
				Expect(os.WriteFile(emptyPath, nil, 0o644)).To(Succeed())

				_, err := loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should reject non-MIPS ELF files", func() {
				elfPath := filepath.Join(tempDir, "x86.elf")
				writeMIPSELF(elfPath, 3, 0, nil)

				_, err := loader.Load(elfPath)
				Expect(err).To(MatchError(ContainSubstring("not a MIPS")))
			})
		})
	})
})

type segmentSpec struct {
	addr    uint32
	data    []byte
	memSize uint32
	flags   uint32
}

func wordsToBytes(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// writeMIPSELF writes a big-endian ELF32 executable with one PT_LOAD program
// header per segment.
func writeMIPSELF(path string, machine uint16, entryPoint uint32, segs []segmentSpec) {
	const (
		ehsize    = 52
		phentsize = 32
	)
	be := binary.BigEndian

	header := make([]byte, ehsize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1                      // ELFCLASS32
	header[5] = 2                      // big endian
	header[6] = 1                      // version
	be.PutUint16(header[16:18], 2)     // executable
	be.PutUint16(header[18:20], machine)
	be.PutUint32(header[20:24], 1)
	be.PutUint32(header[24:28], entryPoint)
	be.PutUint32(header[28:32], ehsize) // phoff
	be.PutUint16(header[40:42], ehsize)
	be.PutUint16(header[42:44], phentsize)
	be.PutUint16(header[44:46], uint16(len(segs)))
	be.PutUint16(header[46:48], 40) // shentsize

	offset := uint32(ehsize + phentsize*len(segs))
	var phdrs, payload []byte
	for _, seg := range segs {
		ph := make([]byte, phentsize)
		be.PutUint32(ph[0:4], 1) // PT_LOAD
		be.PutUint32(ph[4:8], offset)
		be.PutUint32(ph[8:12], seg.addr)
		be.PutUint32(ph[12:16], seg.addr)
		be.PutUint32(ph[16:20], uint32(len(seg.data)))
		be.PutUint32(ph[20:24], seg.memSize)
		be.PutUint32(ph[24:28], seg.flags)
		be.PutUint32(ph[28:32], 4)

		phdrs = append(phdrs, ph...)
		payload = append(payload, seg.data...)
		offset += uint32(len(seg.data))
	}

	out := append(append(header, phdrs...), payload...)
	Expect(os.WriteFile(path, out, 0o644)).To(Succeed())
}
