package cbeardy

// The generator walks the exported databases through read-only memory
// maps. Node and exit records are read field by field at computed
// offsets; every offset coming from the files is bounds-checked before
// use, so a corrupt database surfaces as an error instead of a fault.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path/filepath"
)

// generateBufferSize is the initial size of the sentence buffer; it
// doubles whenever an append would overflow.
const generateBufferSize = 512

// Generator samples random sentences from an exported model.
type Generator struct {
	strings []byte
	nodes   []byte
	start   []byte
	maps    []*MappedFile

	numStart int32

	// intn draws a uniform int in [0, n). Swappable for deterministic
	// tests; defaults to math/rand.
	intn func(n int) int
}

// Open memory-maps stringdb, markovdb and startdb from dir.
func Open(dir string) (g *Generator, err error) {
	g = &Generator{intn: rand.Intn}
	defer func() {
		if err != nil {
			g.Close()
			g = nil
		}
	}()

	for _, db := range []struct {
		name string
		blob *[]byte
	}{
		{STRINGDB_FILE, &g.strings},
		{MARKOVDB_FILE, &g.nodes},
		{STARTDB_FILE, &g.start},
	} {
		var m *MappedFile
		if m, err = OpenMappedFile(filepath.Join(dir, db.name)); err != nil {
			return
		}
		g.maps = append(g.maps, m)
		*db.blob = m.data
	}

	if len(g.start) < 4 {
		err = fmt.Errorf("startdb: truncated header (%d bytes)", len(g.start))
		return
	}
	g.numStart = int32(binary.LittleEndian.Uint32(g.start))
	if int64(len(g.start)) < 4+int64(g.numStart)*exportExitSize {
		err = fmt.Errorf("startdb: %d start states do not fit in %d bytes", g.numStart, len(g.start))
		return
	}
	return
}

func (g *Generator) Close() error {
	var first error
	for _, m := range g.maps {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	g.maps = nil
	return first
}

// nodeHeader reads a node record at off in markovdb.
func (g *Generator) nodeHeader(off int64) (words [ORDER]int64, numExits int32, err error) {
	if off < 0 || off%4 != 0 || off+exportNodeSize > int64(len(g.nodes)) {
		err = fmt.Errorf("markovdb: bad node offset %d", off)
		return
	}
	for i := range words {
		words[i] = int64(binary.LittleEndian.Uint64(g.nodes[off+int64(i)*8:]))
	}
	numExits = int32(binary.LittleEndian.Uint32(g.nodes[off+ORDER*8:]))
	if off+exportNodeSize+int64(numExits)*exportExitSize > int64(len(g.nodes)) {
		err = fmt.Errorf("markovdb: node at %d claims %d exits past end of file", off, numExits)
	}
	return
}

// stringAt resolves a stringdb offset to its bytes. NULL_OFFSET
// resolves to nil.
func (g *Generator) stringAt(off int64) ([]byte, error) {
	if off == NULL_OFFSET {
		return nil, nil
	}
	if off < 0 || off >= int64(len(g.strings)) {
		return nil, fmt.Errorf("stringdb: bad string offset %d", off)
	}
	end := bytes.IndexByte(g.strings[off:], 0)
	if end < 0 {
		return nil, fmt.Errorf("stringdb: unterminated string at %d", off)
	}
	return g.strings[off : off+int64(end)], nil
}

// sampleWeighted picks an exit from a cumulative exit array starting
// at base in data, weighting by observed frequency: draw r uniformly
// in [0, total] and binary-search the first exit whose cumulative
// count is >= r. Returns the target node offset.
func (g *Generator) sampleWeighted(data []byte, base int64, num int32) (int64, error) {
	end := base + int64(num)*exportExitSize
	if num <= 0 || base < 0 || end > int64(len(data)) {
		return 0, fmt.Errorf("bad exit array at %d (%d exits)", base, num)
	}

	total := int32(binary.LittleEndian.Uint32(data[end-4 : end]))
	r := int32(g.intn(int(total) + 1))

	exits := base
	n := num
	for n > 0 {
		half := n / 2
		middle := exits + int64(half)*exportExitSize
		if count := int32(binary.LittleEndian.Uint32(data[middle+8:])); count < r {
			exits = middle + exportExitSize
			n = n - half - 1
		} else {
			n = half
		}
	}
	return int64(binary.LittleEndian.Uint64(data[exits:])), nil
}

// appendSpaced appends s and a space, doubling the buffer whenever it
// would overflow.
func appendSpaced(buf, s []byte) []byte {
	if need := len(buf) + len(s) + 1; need > cap(buf) {
		newCap := cap(buf)
		for newCap < need {
			newCap *= 2
		}
		grown := make([]byte, len(buf), newCap)
		copy(grown, buf)
		buf = grown
	}
	buf = append(buf, s...)
	return append(buf, ' ')
}

// Generate samples one sentence: a frequency-weighted start node, then
// exits until the terminal node. Every word is followed by a single
// space.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, 0, generateBufferSize)

	off, err := g.sampleWeighted(g.start, 4, g.numStart)
	if err != nil {
		return "", err
	}
	words, numExits, err := g.nodeHeader(off)
	if err != nil {
		return "", err
	}
	for _, w := range words {
		if w != NULL_OFFSET {
			s, err := g.stringAt(w)
			if err != nil {
				return "", err
			}
			buf = appendSpaced(buf, s)
		}
	}

	for words[ORDER-1] != NULL_OFFSET {
		if off, err = g.sampleWeighted(g.nodes, off+exportNodeSize, numExits); err != nil {
			return "", err
		}
		if words, numExits, err = g.nodeHeader(off); err != nil {
			return "", err
		}
		if words[ORDER-1] != NULL_OFFSET {
			s, err := g.stringAt(words[ORDER-1])
			if err != nil {
				return "", err
			}
			buf = appendSpaced(buf, s)
		}
	}
	return string(buf), nil
}
