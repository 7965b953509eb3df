// Package capsulefooter implements the trailer that lets a packaged
// executable locate its own payload: 8 bytes little-endian payload
// length, followed by 8 bytes magic, always the last 16 bytes of the
// file.
package capsulefooter

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/capsulenv/capsulenv/internal/cerr"
)

const (
	FooterSize = 16

	// MagicPlaintext and MagicEncrypted are the two known 8-byte magic
	// values. Exactly these bytes, nothing else.
	MagicPlaintext = "SETENV_P"
	MagicEncrypted = "SETENV_E"
)

// Footer is the parsed trailer.
type Footer struct {
	PayloadLength uint64
	Magic         string
}

// Encode renders length+magic as the 16 raw trailer bytes.
func Encode(payloadLen uint64, magic string) []byte {
	buf := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(buf[:8], payloadLen)
	copy(buf[8:], magic)
	return buf
}

// Decode parses a raw 16-byte trailer.
func Decode(buf []byte) (Footer, error) {
	if len(buf) != FooterSize {
		return Footer{}, cerr.NoData()
	}
	length := binary.LittleEndian.Uint64(buf[:8])
	magic := string(buf[8:])
	if magic != MagicPlaintext && magic != MagicEncrypted {
		return Footer{}, cerr.NoData()
	}
	return Footer{PayloadLength: length, Magic: magic}, nil
}

// WriteAppend appends payload then the 16-byte footer to w. The caller
// is responsible for writing the runtime image ahead of the payload.
func WriteAppend(w io.Writer, payload []byte, encrypted bool) error {
	magic := MagicPlaintext
	if encrypted {
		magic = MagicEncrypted
	}
	if _, err := w.Write(payload); err != nil {
		return cerr.CouldNotWriteFile("payload")
	}
	if _, err := w.Write(Encode(uint64(len(payload)), magic)); err != nil {
		return cerr.CouldNotWriteFile("footer")
	}
	return nil
}

// Locate opens the running executable (exePath), reads the trailing
// footer, and returns the payload bytes plus whether it was encrypted.
// Any I/O/seek failure or unrecognized magic yields cerr.NoData — "the
// binary carries no valid payload".
func Locate(exePath string) (payload []byte, encrypted bool, err error) {
	f, err := os.Open(exePath)
	if err != nil {
		return nil, false, cerr.NoData()
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, cerr.NoData()
	}
	if info.Size() < FooterSize {
		return nil, false, cerr.NoData()
	}

	footerBuf := make([]byte, FooterSize)
	if _, err := f.Seek(-FooterSize, io.SeekEnd); err != nil {
		return nil, false, cerr.NoData()
	}
	if _, err := io.ReadFull(f, footerBuf); err != nil {
		return nil, false, cerr.NoData()
	}
	footer, err := Decode(footerBuf)
	if err != nil {
		return nil, false, err
	}

	if info.Size() < int64(FooterSize)+int64(footer.PayloadLength) {
		return nil, false, cerr.NoData()
	}
	payloadOffset := -(int64(FooterSize) + int64(footer.PayloadLength))
	if _, err := f.Seek(payloadOffset, io.SeekEnd); err != nil {
		return nil, false, cerr.NoData()
	}
	payload = make([]byte, footer.PayloadLength)
	if _, err := io.ReadFull(f, payload); err != nil {
		return nil, false, cerr.NoData()
	}

	return payload, footer.Magic == MagicEncrypted, nil
}
