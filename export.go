package cbeardy

// Two-pass export of the trained graph into the three database files.
// The first markovdb pass lays out node records and remembers their
// offsets; the second fills in the exit arrays once every target
// offset is known. Exit counts are written as cumulative sums so the
// generator can binary-search them.

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// Export writes stringdb, markovdb and startdb into dir. The engine's
// string pool is consumed: after Export the pool only answers offset
// queries, so the engine cannot train further.
func (e *Engine) Export(dir string) (err error) {
	if err = e.exportStrings(filepath.Join(dir, STRINGDB_FILE)); err != nil {
		return
	}
	if err = e.exportNodes(filepath.Join(dir, MARKOVDB_FILE)); err != nil {
		return
	}
	return e.exportStart(filepath.Join(dir, STARTDB_FILE))
}

func (e *Engine) exportStrings(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err = e.strings.export(w); err != nil {
		return
	}
	if err = w.Flush(); err != nil {
		return
	}
	glog.V(1).Infof("wrote %d strings", e.strings.numStrings())
	return f.Close()
}

func (e *Engine) exportNodes(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()

	// Pass 1: write node headers at their final offsets, leaving a
	// hole for each exit array.
	var buf [exportNodeSize]byte
	var pos int64
	for i := 0; i < markovTableSize; i++ {
		for cur := nodeRef(e.nodeTable[i]); cur != 0; {
			nd := e.node(cur)
			nd.exportOff = pos
			for j, w := range nd.words {
				binary.LittleEndian.PutUint64(buf[j*8:], uint64(e.strings.offset(w)))
			}
			binary.LittleEndian.PutUint32(buf[ORDER*8:], uint32(nd.numExits))
			if _, err = f.WriteAt(buf[:], pos); err != nil {
				return
			}
			pos += exportNodeSize + int64(nd.numExits)*exportExitSize
			cur = nd.bucketNext
		}
	}
	glog.V(1).Infof("laid out %d node bytes", pos)

	// Pass 2: fill the holes with cumulative exits.
	var exits []byte
	for i := 0; i < markovTableSize; i++ {
		for cur := nodeRef(e.nodeTable[i]); cur != 0; {
			nd := e.node(cur)
			if need := int(nd.numExits) * exportExitSize; cap(exits) < need {
				exits = make([]byte, need)
			} else {
				exits = exits[:need]
			}
			var total int32
			n := 0
			e.forEachExit(nd, func(target nodeRef, count int32) {
				total += count
				binary.LittleEndian.PutUint64(exits[n:], uint64(e.node(target).exportOff))
				binary.LittleEndian.PutUint32(exits[n+8:], uint32(total))
				n += exportExitSize
			})
			if n > 0 {
				if _, err = f.WriteAt(exits[:n], nd.exportOff+exportNodeSize); err != nil {
					return
				}
			}
			cur = nd.bucketNext
		}
	}
	return f.Close()
}

func (e *Engine) exportStart(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	var buf [exportExitSize]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(e.numStart))
	if _, err = w.Write(buf[:4]); err != nil {
		return
	}

	var total int32
	for i := 0; i < startTableSize; i++ {
		for cur := e.startTable[i]; cur != 0; {
			en := e.hashExitPool.slot(cur)[0]
			total += en.count
			binary.LittleEndian.PutUint64(buf[:], uint64(e.node(en.node).exportOff))
			binary.LittleEndian.PutUint32(buf[8:], uint32(total))
			if _, err = w.Write(buf[:]); err != nil {
				return
			}
			cur = en.next
		}
	}
	if err = w.Flush(); err != nil {
		return
	}
	glog.V(1).Infof("wrote %d start states", e.numStart)
	return f.Close()
}
