package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var indexMagic = [4]byte{'D', 'F', 'V', 'I'}

const indexFormatVersion uint32 = 1

// Save persists the index to path. Directory is created if needed. The blob is
// written to a temporary sibling and renamed into place, so readers never see a
// partial file. Format (little endian): magic (4), version (4), dimension (4),
// count (4), then per slot: id (8) and the vector (dimension*4 bytes).
func (f *FlatIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp-" + uuid.NewString()
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := f.writeLocked(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func (f *FlatIndex) writeLocked(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := []uint32{indexFormatVersion, uint32(f.dimensions), uint32(len(f.ids))}
	if _, err := bw.Write(indexMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, id := range f.ids {
		if err := binary.Write(bw, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := bw.Write(float32SliceToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// Load reads the index from path and replaces the in-memory contents.
// If the file does not exist, the index is emptied and no error is returned.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			f.Reset()
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}

	ids, vectors, err := readIndex(bufio.NewReader(file), f.dimensions, info.Size())
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	f.reindexLocked()
	for _, id := range ids {
		if id > f.maxID {
			f.maxID = id
		}
	}
	return nil
}

const indexHeaderBytes = 16

// readIndex decodes a blob of size bytes. The slot count in the header is
// checked against size before anything is allocated for it.
func readIndex(r io.Reader, dimensions int, size int64) ([]int64, [][]float32, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: read magic: %v", ErrCorruptIndex, err)
	}
	if magic != indexMagic {
		return nil, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic[:])
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrCorruptIndex, err)
	}
	version, dim, n := header[0], header[1], header[2]
	if version != indexFormatVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, version)
	}
	if int(dim) != dimensions {
		return nil, nil, fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, dimensions)
	}
	slot := int64(8 + dimensions*4)
	if want := indexHeaderBytes + int64(n)*slot; want != size {
		return nil, nil, fmt.Errorf("%w: header claims %d slots (%d bytes), file has %d bytes", ErrCorruptIndex, n, want, size)
	}
	ids := make([]int64, 0, n)
	vectors := make([][]float32, 0, n)
	seen := make(map[int64]bool, n)
	buf := make([]byte, dimensions*4)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, nil, fmt.Errorf("%w: read id %d: %v", ErrCorruptIndex, i, err)
		}
		if seen[id] {
			return nil, nil, fmt.Errorf("%w: id %d repeated", ErrCorruptIndex, id)
		}
		seen[id] = true
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, fmt.Errorf("%w: read vector %d: %v", ErrCorruptIndex, i, err)
		}
		ids = append(ids, id)
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	var extra [1]byte
	if _, err := r.Read(extra[:]); !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: trailing data", ErrCorruptIndex)
	}
	return ids, vectors, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
