package parser

import (
	"io"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func init() {
	// Legacy senders lie about charsets. Unknown ones are read as
	// Latin-1 instead of failing the whole part.
	message.CharsetReader = func(cs string, input io.Reader) (io.Reader, error) {
		r, err := charset.Reader(cs, input)
		if err != nil {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return r, nil
	}
}
