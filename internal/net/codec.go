package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// MaxLineLen bounds one console command line, terminator excluded.
const MaxLineLen = 1024

var ErrLineTooLong = errors.New("line too long")

// ReadLine reads one console line from r.
// Wire format: UTF-8 text terminated by "\n"; a trailing "\r" is dropped.
func ReadLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", fmt.Errorf("read line: %w", err)
		}
		if sb.Len()+len(chunk) > MaxLineLen {
			return "", ErrLineTooLong
		}
		sb.Write(chunk)
		if !isPrefix {
			return sb.String(), nil
		}
	}
}

// WriteLine writes one console line to w.
// Wire format: text + "\r\n". Embedded newlines are flattened.
func WriteLine(w io.Writer, line string) error {
	line = strings.NewReplacer("\r", " ", "\n", " ").Replace(line)
	if _, err := io.WriteString(w, line+"\r\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Charset resolves a console charset name. Lines are UTF-8 inside the
// process and converted at the socket.
func Charset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "big5":
		return traditionalchinese.Big5, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
}
