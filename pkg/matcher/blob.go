package matcher

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/willf/bloom"
)

// Errors returned by Load. Any of them means the index cannot be trusted.
var (
	ErrBadMagic           = errors.New("not a membership index")
	ErrUnsupportedVersion = errors.New("unsupported membership index version")
	ErrChecksum           = errors.New("membership index checksum mismatch")
	ErrCorrupt            = errors.New("corrupt membership index")
)

// Blob layout, big endian:
//
//	magic     [4]byte "WRBF"
//	version   uint16
//	reserved  uint16
//	capacity  uint64
//	fpRate    uint64  IEEE 754 bits
//	count     uint64
//	length    uint64  payload bytes
//	payload   bloom filter (bit count, hash count, bitset)
//	crc32     uint32  IEEE, over everything above
const (
	blobMagic   = "WRBF"
	blobVersion = 1
	headerLen   = 40
	maxPayload  = 1 << 36
)

// Save writes the index as a versioned, checksummed blob.
func (ix *Index) Save(w io.Writer) error {
	var payload bytes.Buffer
	if _, err := ix.filter.WriteTo(&payload); err != nil {
		return fmt.Errorf("encode filter: %w", err)
	}

	var hdr [headerLen]byte
	copy(hdr[0:4], blobMagic)
	binary.BigEndian.PutUint16(hdr[4:], blobVersion)
	binary.BigEndian.PutUint64(hdr[8:], uint64(ix.capacity))
	binary.BigEndian.PutUint64(hdr[16:], math.Float64bits(ix.fpRate))
	binary.BigEndian.PutUint64(hdr[24:], ix.count)
	binary.BigEndian.PutUint64(hdr[32:], uint64(payload.Len()))

	sum := crc32.NewIEEE()
	out := io.MultiWriter(w, sum)
	if _, err := out.Write(hdr[:]); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	if _, err := payload.WriteTo(out); err != nil {
		return fmt.Errorf("write index payload: %w", err)
	}
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], sum.Sum32())
	if _, err := w.Write(tail[:]); err != nil {
		return fmt.Errorf("write index checksum: %w", err)
	}
	return nil
}

// Load restores an index written by Save. Truncated, altered or foreign
// blobs are rejected.
func Load(r io.Reader) (*Index, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	if string(hdr[0:4]) != blobMagic {
		return nil, ErrBadMagic
	}
	if v := binary.BigEndian.Uint16(hdr[4:]); v != blobVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	length := binary.BigEndian.Uint64(hdr[32:])
	if length > maxPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrCorrupt, length)
	}

	// The buffer grows with the bytes actually present, not the declared length.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, int64(length)))
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrCorrupt, err)
	}
	if uint64(n) != length {
		return nil, fmt.Errorf("%w: payload of %d bytes, header declares %d", ErrCorrupt, n, length)
	}
	payload := buf.Bytes()
	var tail [4]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return nil, fmt.Errorf("%w: read checksum: %v", ErrCorrupt, err)
	}
	sum := crc32.NewIEEE()
	sum.Write(hdr[:])
	sum.Write(payload)
	if sum.Sum32() != binary.BigEndian.Uint32(tail[:]) {
		return nil, ErrChecksum
	}

	filter := new(bloom.BloomFilter)
	if _, err := filter.ReadFrom(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("%w: decode filter: %v", ErrCorrupt, err)
	}
	if filter.Cap() == 0 || filter.K() == 0 {
		return nil, fmt.Errorf("%w: empty filter", ErrCorrupt)
	}

	return &Index{
		filter:   filter,
		capacity: uint(binary.BigEndian.Uint64(hdr[8:])),
		fpRate:   math.Float64frombits(binary.BigEndian.Uint64(hdr[16:])),
		count:    binary.BigEndian.Uint64(hdr[24:]),
	}, nil
}

// SaveFile writes the index to path, replacing it only once the blob is
// complete.
func (ix *Index) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := ix.Save(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile reads an index from path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()
	ix, err := Load(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	return ix, nil
}
