package cbeardy

import (
	"math"
	"os"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// MappedFile is a read-only memory mapping of a database file.
type MappedFile struct {
	file *os.File
	data []byte
}

func OpenMappedFile(path string) (m *MappedFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return
	}
	if stat.Size() == 0 {
		// mmap rejects empty files; an empty database maps to an
		// empty blob.
		m = &MappedFile{f, nil}
		return
	}
	if strconv.IntSize == 32 && stat.Size() > math.MaxUint32 {
		glog.Warningf("%s is too big for a 32bit address space", path)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return
	}
	m = &MappedFile{f, data}
	return
}

func (m *MappedFile) Close() error {
	var err1 error
	if m.data != nil {
		err1 = syscall.Munmap(m.data)
	}
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
