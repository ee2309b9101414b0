package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// snapshotState is the JSON part of a snapshot archive.
type snapshotState struct {
	A       int16     `json:"a"`
	D       int16     `json:"d"`
	PC      uint16    `json:"pc"`
	Halted  bool      `json:"halted"`
	Cycles  uint64    `json:"cycles"`
	ROMSize int       `json:"rom_size"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotToBytes serialises registers, RAM and ROM into an in-memory ZIP
// archive.
func (c *CPU) SnapshotToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := snapshotState{
		A:       c.A,
		D:       c.D,
		PC:      c.PC,
		Halted:  c.Halted,
		Cycles:  c.Cycles,
		ROMSize: len(c.ROM),
		SavedAt: time.Now().UTC(),
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal cpu_state")
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}

	ram := make([]uint16, RAMSize)
	for i, v := range c.RAM {
		ram[i] = uint16(v)
	}
	if err := writeZipEntry(zw, "ram.bin", uint16SliceToLE(ram)); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "rom.bin", uint16SliceToLE(c.ROM)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "close zip")
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by SnapshotToBytes.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, "open zip")
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state snapshotState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return errors.Wrap(err, "unmarshal cpu_state")
	}
	if state.ROMSize < 0 || state.ROMSize > ROMSize {
		return errors.Errorf("snapshot rom_size %d out of range", state.ROMSize)
	}

	romData, err := readZipEntry(fileMap, "rom.bin")
	if err != nil {
		return err
	}
	if len(romData) != state.ROMSize*2 {
		return errors.Errorf("rom.bin holds %d bytes, want %d", len(romData), state.ROMSize*2)
	}
	c.ROM = make([]uint16, state.ROMSize)
	leToUint16Slice(romData, c.ROM)

	if raw, err := readZipEntry(fileMap, "ram.bin"); err == nil {
		ram := make([]uint16, RAMSize)
		leToUint16Slice(raw, ram)
		for i, v := range ram {
			c.RAM[i] = int16(v)
		}
	}

	c.A = state.A
	c.D = state.D
	c.PC = state.PC
	c.Halted = state.Halted
	c.Cycles = state.Cycles
	return nil
}

// SnapshotToFile writes the snapshot archive to path.
func (c *CPU) SnapshotToFile(path string) error {
	data, err := c.SnapshotToBytes()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write snapshot %s", path)
}

// RestoreFromFile reads a snapshot archive from path and restores it.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read snapshot %s", path)
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create zip entry %q", name)
	}
	_, err = w.Write(data)
	return errors.Wrapf(err, "write zip entry %q", name)
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, errors.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open zip entry %q", name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func uint16SliceToLE(src []uint16) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func leToUint16Slice(src []byte, dst []uint16) {
	for i := range dst {
		if i*2+1 < len(src) {
			dst[i] = binary.LittleEndian.Uint16(src[i*2:])
		}
	}
}
