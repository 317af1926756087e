package decoder

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Intel HEX record types (spec.md 4.H raw-bin/HEX reader inputs).
const (
	RecordData         = 0
	RecordEndOfFile     = 1
	RecordExtSegAddr    = 2
	RecordStartSegAddr  = 3
	RecordExtLinearAddr = 4
)

const segBase = 16

// record is one decoded ":llaaaatt[dd...]cc" line.
type record struct {
	length uint8
	addr   uint16
	typ    uint8
	data   []byte
}

func decodeRecord(line string) (record, error) {
	raw, err := hex.DecodeString(line)
	if err != nil {
		return record{}, errors.Wrap(err, "hex: malformed record")
	}
	if len(raw) < 5 {
		return record{}, errors.New("hex: record too short")
	}
	length := raw[0]
	if len(raw) != int(length)+5 {
		return record{}, errors.New("hex: record length mismatch")
	}

	var sum uint8
	for _, b := range raw[:len(raw)-1] {
		sum += b
	}
	sum = ^sum + 1
	if sum != raw[len(raw)-1] {
		return record{}, errors.New("hex: checksum mismatch")
	}

	return record{
		length: length,
		addr:   uint16(raw[1])<<8 | uint16(raw[2]),
		typ:    raw[3],
		data:   raw[4 : 4+length],
	}, nil
}

// DecodeIntelHex parses Intel HEX source text into a flat byte image
// starting at the address of the file's first record (of any type),
// following extended
// segment-address records the way the original decoder does (linear
// address records are not used by this target and are ignored like
// any other unrecognized record type).
func DecodeIntelHex(text string) ([]byte, error) {
	var records []record
	segment := 0
	dataSize := 0

	for _, line := range strings.Split(text, ":") {
		if line == "" {
			continue
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		rec, err := decodeRecord(line)
		if err != nil {
			return nil, errors.Wrap(err, "hex: pre-parse failed")
		}

		switch rec.typ {
		case RecordData:
			dataSize = segment + int(rec.addr) + int(rec.length)
		case RecordExtSegAddr:
			if len(rec.data) < 2 {
				return nil, errors.New("hex: short segment record")
			}
			segment += (int(rec.data[0])<<8 | int(rec.data[1])) * segBase
		case RecordEndOfFile:
			segment = 0
			records = append(records, rec)
			goto decoded
		}
		records = append(records, rec)
	}

decoded:
	if len(records) == 0 {
		return nil, errors.New("hex: no valid record")
	}

	startAddr := int(records[0].addr)
	if dataSize < startAddr {
		return nil, errors.New("hex: no data records")
	}
	image := make([]byte, dataSize-startAddr)

	segment = 0
	for _, rec := range records {
		switch rec.typ {
		case RecordData:
			for pos, b := range rec.data {
				addr := int(rec.addr) + segment + pos - startAddr
				image[addr] = b
			}
		case RecordExtSegAddr:
			segment += (int(rec.data[0])<<8 | int(rec.data[1])) * segBase
		}
	}

	return image, nil
}
