package scraper

import (
	"fmt"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// latin1Labels name true ISO-8859-1. charset.Lookup follows the WHATWG table
// and maps them to windows-1252, which decodes 0x80-0x9F differently.
var latin1Labels = map[string]bool{
	"latin-1":    true,
	"latin1":     true,
	"iso-8859-1": true,
	"iso8859-1":  true,
	"iso_8859-1": true,
	"l1":         true,
}

// Decode converts a response body to UTF-8.
//
// A forced label wins; Latin-1 labels force real ISO-8859-1. Otherwise the Content-Type header and <meta> tags are
// consulted. Bodies with no declaration that are not valid UTF-8 get their
// encoding guessed from the bytes.
func Decode(body []byte, contentType, forced string) (string, error) {
	enc, err := pickEncoding(body, contentType, forced)
	if err != nil {
		return "", err
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decoding body: %w", err)
	}
	return string(out), nil
}

func pickEncoding(body []byte, contentType, forced string) (encoding.Encoding, error) {
	if forced != "" {
		if latin1Labels[strings.ToLower(strings.TrimSpace(forced))] {
			return charmap.ISO8859_1, nil
		}
		enc, _ := charset.Lookup(forced)
		if enc == nil {
			return nil, fmt.Errorf("unknown encoding %q", forced)
		}
		return enc, nil
	}

	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain || name == "utf-8" {
		return enc, nil
	}

	if guessed := DetectCharset(body); guessed != "" {
		if enc, _ := charset.Lookup(guessed); enc != nil {
			return enc, nil
		}
	}
	return enc, nil
}

// DetectCharset guesses the charset of raw bytes, empty when undecided
func DetectCharset(data []byte) string {
	detector := chardet.NewHtmlDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
