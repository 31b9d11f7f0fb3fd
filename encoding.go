package godbf

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/axgle/mahonia"
	"github.com/pkg/errors"
)

// textDecoder converts character fields from the file encoding to UTF-8.
// Invalid byte sequences are dropped rather than failing the field.
type textDecoder struct {
	name    string
	decoder mahonia.Decoder
}

// isCanonical reports whether the encoding name denotes UTF-8, in which
// case character data is used as is.
func isCanonical(encoding string) bool {
	switch strings.ToLower(strings.Replace(encoding, "-", "", -1)) {
	case "", "utf8":
		return true
	}
	return false
}

var codePage = regexp.MustCompile(`^(?i)cp-?([0-9]+)$`)

// charsetName maps DOS/Windows code page names ("CP1252", "cp-1251") to the
// "windows-NNNN" names mahonia registers. Other names pass through.
func charsetName(encoding string) string {
	if m := codePage.FindStringSubmatch(strings.TrimSpace(encoding)); m != nil {
		return "windows-" + m[1]
	}
	return encoding
}

func newTextDecoder(encoding string) (*textDecoder, error) {
	if isCanonical(encoding) {
		return nil, nil
	}
	d := mahonia.NewDecoder(charsetName(encoding))
	if d == nil {
		return nil, errors.Errorf("unsupported text encoding '%s'", encoding)
	}
	return &textDecoder{name: encoding, decoder: d}, nil
}

// convert transcodes b, reporting false if any bytes had to be dropped.
func (d *textDecoder) convert(b []byte) (string, bool) {
	return dropInvalid(d.decoder, b)
}

func dropInvalid(dec mahonia.Decoder, b []byte) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(b))
	clean := true
	for len(b) > 0 {
		c, size, status := dec(b)
		if size <= 0 {
			size = 1
		}
		switch status {
		case mahonia.SUCCESS:
			if c == utf8.RuneError {
				clean = false
			} else {
				sb.WriteRune(c)
			}
		case mahonia.STATE_ONLY:
		case mahonia.NO_ROOM:
			// incomplete sequence at the end of the field
			return sb.String(), false
		default:
			clean = false
		}
		if size > len(b) {
			size = len(b)
		}
		b = b[size:]
	}
	return sb.String(), clean
}
