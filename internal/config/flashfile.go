package config

import (
	"fmt"
	"os"
)

// FlashFile stands in for the raw flash sector the real device keeps its
// settings record in. On embedded hardware this would be a bare sector
// accessed through the flash controller; here it is a single regular file
// of exactly SectorSize bytes. ReadSector/WriteSector model the
// erase+program cycle as closely as a POSIX filesystem allows: a write
// always rewrites the entire sector in one call.
type FlashFile interface {
	ReadSector() ([]byte, error)
	WriteSector(data []byte) error
}

// fileFlash is the production FlashFile, backed by a regular file.
type fileFlash struct {
	path string
}

// NewFileFlash opens (creating if necessary) the file at path as a
// FlashFile. The file is grown to SectorSize on first use.
func NewFileFlash(path string) (FlashFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open flash file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat flash file %s: %w", path, err)
	}
	if info.Size() < SectorSize {
		if err := f.Truncate(SectorSize); err != nil {
			return nil, fmt.Errorf("grow flash file %s: %w", path, err)
		}
	}

	return &fileFlash{path: path}, nil
}

func (f *fileFlash) ReadSector() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read flash sector: %w", err)
	}
	if len(data) < SectorSize {
		padded := make([]byte, SectorSize)
		copy(padded, data)
		for i := len(data); i < SectorSize; i++ {
			padded[i] = 0xFF
		}
		data = padded
	}
	return data, nil
}

func (f *fileFlash) WriteSector(data []byte) error {
	if len(data) > SectorSize {
		return fmt.Errorf("write flash sector: record of %d bytes exceeds sector size %d", len(data), SectorSize)
	}

	sector := make([]byte, SectorSize)
	for i := range sector {
		sector[i] = 0xFF
	}
	copy(sector, data)

	fh, err := os.OpenFile(f.path, os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("write flash sector: %w", err)
	}
	defer fh.Close()

	if _, err := fh.WriteAt(sector, 0); err != nil {
		return fmt.Errorf("write flash sector: %w", err)
	}
	return fh.Sync()
}

// TruncatingFlashFile wraps a FlashFile and truncates every write to a
// fixed number of bytes, simulating a power loss partway through an
// erase+program cycle. Tests use it to exercise the Store's fallback to
// freshRecord() when the on-disk sector is corrupt or incomplete.
type TruncatingFlashFile struct {
	inner     FlashFile
	truncateN int
}

// NewTruncatingFlashFile wraps inner so that every WriteSector call is
// truncated to truncateN bytes before being persisted.
func NewTruncatingFlashFile(inner FlashFile, truncateN int) *TruncatingFlashFile {
	return &TruncatingFlashFile{inner: inner, truncateN: truncateN}
}

func (t *TruncatingFlashFile) ReadSector() ([]byte, error) {
	return t.inner.ReadSector()
}

func (t *TruncatingFlashFile) WriteSector(data []byte) error {
	if t.truncateN < len(data) {
		data = data[:t.truncateN]
	}
	return t.inner.WriteSector(data)
}
