package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "WQDB"
	// Current version
	FormatVersion = 1
	// File extension for snapshot and collection files
	FileExtension = ".wqdb"
)

// FileHeader represents the header of our storage file
type FileHeader struct {
	Magic    [4]byte // "WQDB"
	Version  uint8   // Format version
	Flags    uint8   // Reserved for future use
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer) error {
	header := FileHeader{
		Magic:   [4]byte{'W', 'Q', 'D', 'B'},
		Version: FormatVersion,
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Validate magic bytes
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	// Validate version
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// StorageData is the body of a snapshot or collection file. View rows are
// not stored; views are rebuilt from their definitions when a collection is
// loaded.
type StorageData struct {
	Collections map[string]map[string]interface{}  `msgpack:"collections"`
	Views       map[string][]domain.ViewDefinition `msgpack:"views,omitempty"`
	Metadata    map[string]interface{}             `msgpack:"metadata,omitempty"`
	SavedAt     int64                              `msgpack:"saved_at"` // Unix nanoseconds
}

// NewStorageData creates a new empty storage data structure
func NewStorageData() *StorageData {
	return &StorageData{
		Collections: make(map[string]map[string]interface{}),
		Views:       make(map[string][]domain.ViewDefinition),
		Metadata:    make(map[string]interface{}),
	}
}

// EncodeStorageData writes the header followed by the lz4-compressed
// MessagePack body.
func EncodeStorageData(w io.Writer, data *StorageData) error {
	if err := WriteHeader(w); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	return nil
}

// DecodeStorageData reads a file written by EncodeStorageData.
func DecodeStorageData(r io.Reader) (*StorageData, error) {
	if _, err := ReadHeader(r); err != nil {
		return nil, fmt.Errorf("invalid file header: %w", err)
	}

	var data StorageData
	if err := msgpack.NewDecoder(lz4.NewReader(r)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	if data.Collections == nil {
		data.Collections = make(map[string]map[string]interface{})
	}
	return &data, nil
}
