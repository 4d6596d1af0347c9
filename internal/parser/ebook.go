package parser

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"github.com/dgallion1/mindgest/internal/document"
)

const (
	palmHeaderLen     = 78
	compressionNone   = 1
	compressionPalm   = 2
	encodingCP1252    = 1252
	encodingUTF8      = 65001
	minPrintableRun   = 4
	mobiExtraFlagsOff = 0xF2
)

var errNotPalmDoc = errors.New("not a palmdoc container")

// EbookExtractor handles MOBI and AZW3 files. PalmDoc-compressed books are
// decompressed and read as HTML; anything else falls back to a lossy scan
// for printable text.
type EbookExtractor struct{}

func (e *EbookExtractor) Extract(ctx context.Context, data []byte, _ string, _ document.ProgressFunc) (*document.Extraction, error) {
	if markup, err := decodePalmDoc(data); err == nil {
		doc, err := (&HTMLExtractor{}).Extract(ctx, markup, "", nil)
		if err == nil && strings.TrimSpace(doc.Text) != "" {
			doc.Method = "palmdoc"
			return doc, nil
		}
	}
	return &document.Extraction{Text: printableRuns(data), Method: "lossy"}, nil
}

// decodePalmDoc returns the UTF-8 text stream of a PalmDB book.
func decodePalmDoc(data []byte) ([]byte, error) {
	if len(data) < palmHeaderLen+8 {
		return nil, errNotPalmDoc
	}
	if kind := string(data[60:68]); kind != "BOOKMOBI" && kind != "TEXtREAd" {
		return nil, errNotPalmDoc
	}
	numRecords := int(binary.BigEndian.Uint16(data[76:78]))
	if numRecords < 2 || len(data) < palmHeaderLen+numRecords*8 {
		return nil, errNotPalmDoc
	}
	record := func(i int) []byte {
		if i >= numRecords {
			return nil
		}
		start := int(binary.BigEndian.Uint32(data[palmHeaderLen+i*8:]))
		end := len(data)
		if i+1 < numRecords {
			end = int(binary.BigEndian.Uint32(data[palmHeaderLen+(i+1)*8:]))
		}
		if start < 0 || start > end || end > len(data) {
			return nil
		}
		return data[start:end]
	}

	rec0 := record(0)
	if len(rec0) < 16 {
		return nil, errNotPalmDoc
	}
	compression := binary.BigEndian.Uint16(rec0[0:2])
	textRecords := int(binary.BigEndian.Uint16(rec0[8:10]))
	if binary.BigEndian.Uint16(rec0[12:14]) != 0 {
		return nil, errors.New("encrypted book")
	}
	if compression != compressionNone && compression != compressionPalm {
		return nil, errors.New("unsupported compression")
	}

	encoding := uint32(encodingCP1252)
	var extraFlags uint16
	if len(rec0) >= 32 && string(rec0[16:20]) == "MOBI" {
		encoding = binary.BigEndian.Uint32(rec0[28:32])
		headerLen := binary.BigEndian.Uint32(rec0[20:24])
		if headerLen >= 0xE4 && len(rec0) >= mobiExtraFlagsOff+2 {
			extraFlags = binary.BigEndian.Uint16(rec0[mobiExtraFlagsOff:])
		}
	}

	var out bytes.Buffer
	for i := 1; i <= textRecords; i++ {
		rec := record(i)
		if rec == nil {
			break
		}
		rec = rec[:len(rec)-trailingSize(rec, extraFlags)]
		if compression == compressionPalm {
			rec = palmDocDecompress(rec)
		}
		out.Write(rec)
	}

	if encoding == encodingUTF8 {
		return []byte(strings.ToValidUTF8(out.String(), "�")), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out.Bytes())
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// trailingSize returns how many bytes of extra record data end rec.
func trailingSize(rec []byte, flags uint16) int {
	size := 0
	for f := flags >> 1; f != 0; f >>= 1 {
		if f&1 == 0 {
			continue
		}
		end := len(rec) - size
		value, shift := 0, 0
		for end > 0 {
			b := rec[end-1]
			value |= int(b&0x7F) << shift
			shift += 7
			end--
			if b&0x80 != 0 || shift >= 28 {
				break
			}
		}
		size += value
	}
	if flags&1 != 0 && len(rec)-size > 0 {
		size += int(rec[len(rec)-size-1]&0x3) + 1
	}
	return min(size, len(rec))
}

// palmDocDecompress expands PalmDoc LZ77 data.
func palmDocDecompress(src []byte) []byte {
	out := make([]byte, 0, len(src)*2)
	for i := 0; i < len(src); {
		c := src[i]
		i++
		switch {
		case c >= 0x01 && c <= 0x08:
			n := min(int(c), len(src)-i)
			out = append(out, src[i:i+n]...)
			i += n
		case c <= 0x7F:
			out = append(out, c)
		case c <= 0xBF:
			if i >= len(src) {
				return out
			}
			pair := int(c)<<8 | int(src[i])
			i++
			dist := (pair >> 3) & 0x07FF
			length := pair&0x07 + 3
			if dist == 0 || dist > len(out) {
				continue
			}
			for k := 0; k < length; k++ {
				out = append(out, out[len(out)-dist])
			}
		default:
			out = append(out, ' ', c^0x80)
		}
	}
	return out
}

// printableRuns keeps runs of printable characters long enough to be text.
func printableRuns(data []byte) string {
	s := strings.ToValidUTF8(string(data), " ")
	var out, run strings.Builder
	runLen := 0
	flushRun := func() {
		if runLen >= minPrintableRun {
			out.WriteString(run.String())
			out.WriteByte(' ')
		}
		run.Reset()
		runLen = 0
	}
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			run.WriteRune(r)
			runLen++
			continue
		}
		flushRun()
	}
	flushRun()
	return collapseSpace(out.String())
}
