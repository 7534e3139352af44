// Package textdecode reads bounded file prefixes and decodes them to text
// using heuristic charset detection.
package textdecode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultMaxBytes is used when no limit is given.
	DefaultMaxBytes = 2 << 20
	// MinMaxBytes is the smallest accepted limit.
	MinMaxBytes = 1024
)

// ErrNotRegularFile is returned when the path is a directory or special file.
var ErrNotRegularFile = errors.New("not a regular file")

const bom = "\ufeff"

// Result is a decoded file prefix.
type Result struct {
	Text       string `json:"text"`
	Truncated  bool   `json:"truncated"`
	BytesRead  int64  `json:"bytesRead"`
	TotalBytes int64  `json:"totalBytes"`
}

// Limit normalizes a caller supplied byte limit.
func Limit(maxBytes int64) int64 {
	if maxBytes <= 0 {
		return DefaultMaxBytes
	}
	return max(maxBytes, MinMaxBytes)
}

// ReadFile reads at most maxBytes from the start of path and decodes them.
// A truncated multi-byte sequence at the cut is decoded as is.
func ReadFile(path string, maxBytes int64) (Result, error) {
	limit := Limit(maxBytes)

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, min(limit, info.Size()))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	buf = buf[:n]

	return Result{
		Text:       Decode(buf),
		Truncated:  info.Size() > limit,
		BytesRead:  int64(n),
		TotalBytes: info.Size(),
	}, nil
}

// Decode detects the charset of b and returns its text without a leading
// byte-order mark. Anything that cannot be detected or decoded is treated
// as UTF-8.
func Decode(b []byte) string {
	text, ok := decodeDetected(b)
	if !ok {
		text = strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return strings.TrimPrefix(text, bom)
}

func decodeDetected(b []byte) (string, bool) {
	if len(b) == 0 {
		return "", false
	}
	// Valid UTF-8 (ASCII included) is never reinterpreted.
	if bytes.HasPrefix(b, []byte(bom)) || validUTF8Prefix(b) {
		return "", false
	}

	res, err := chardet.NewTextDetector().DetectBest(b)
	if err != nil || res == nil || res.Charset == "" {
		return "", false
	}

	enc, err := lookup(res.Charset)
	if err != nil {
		return "", false
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// validUTF8Prefix reports whether b is valid UTF-8, ignoring one
// incomplete sequence cut off at the end.
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for k := 1; k <= utf8.UTFMax-1 && k < len(b); k++ {
		head, tail := b[:len(b)-k], b[len(b)-k:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRune(tail) && utf8.Valid(head) {
			return true
		}
	}
	return false
}

// detectorAliases maps chardet names that the WHATWG index spells differently.
var detectorAliases = map[string]string{
	"GB-18030":  "gb18030",
	"SHIFT_JIS": "shift_jis",
}

// lookup resolves a detector charset name to an encoding.
func lookup(name string) (encoding.Encoding, error) {
	if alias, ok := detectorAliases[strings.ToUpper(name)]; ok {
		name = alias
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}
