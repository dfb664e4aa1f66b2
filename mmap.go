// mmap.go -- memory-mapped cold start for a serialized MPHF (component E)
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package bdzmph

import (
	"fmt"
	"os"

	"github.com/opencoff/go-mmap"
)

// MappedMPHF pairs a deserialized MPHF with the memory map it was read from.
// The MPHF's tables are heap copies decoded from the map, so they do not
// alias the mapped memory and stay valid after Close.
type MappedMPHF struct {
	*MPHF

	mm *mmap.Mapping
	fd *os.File
}

// OpenMPHF memory-maps the file at path (as written by MPHF.MarshalBinary)
// and reconstructs an MPHF from the mapped bytes, with no read(2) of the
// file. ReadMPHF decodes the assignment table and rank counters into
// freshly allocated slices; the tables are not used in place. No writes
// ever occur through the map.
func OpenMPHF(path string) (*MappedMPHF, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	st, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}

	mm := mmap.New(fd)
	mapping, err := mm.Map(st.Size(), 0, mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("bdzmph: can't mmap %s: %w", path, err)
	}

	mp, err := ReadMPHF(mapping.Bytes())
	if err != nil {
		mapping.Unmap()
		fd.Close()
		return nil, err
	}

	return &MappedMPHF{MPHF: mp, mm: mapping, fd: fd}, nil
}

// Close releases the backing memory map and the underlying file handle.
func (m *MappedMPHF) Close() error {
	if m.mm != nil {
		m.mm.Unmap()
		m.mm = nil
	}
	if m.fd != nil {
		err := m.fd.Close()
		m.fd = nil
		return err
	}
	return nil
}
