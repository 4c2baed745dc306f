package sniffer

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want MediaType
		ext  string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, TypeJPEG, "jpg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, TypePNG, "png"},
		{"gif", []byte("GIF89a...."), TypeGIF, "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP, "webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Type)
			assert.Equal(t, tc.ext, got.Extension())
		})
	}
}

func TestDetectHeadRejectsOtherFormats(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		[]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"),
		[]byte("%PDF-1.7"),
		[]byte("\x00\x00\x00\x1cftypavif"),
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	}
}

func TestDetectReplaysHead(t *testing.T) {
	body := append([]byte{0xff, 0xd8, 0xff, 0xe1}, bytes.Repeat([]byte{0x42}, 2048)...)

	result, r, err := Detect(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.MIME)

	replayed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, replayed)
}

func TestDetectShortInput(t *testing.T) {
	_, _, err := Detect(strings.NewReader("GIF"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "Image/PNG; charset=binary")
	assert.Equal(t, "image/png", MimeTypeFromHTTP(h))
	assert.Equal(t, "", MimeTypeFromHTTP(http.Header{}))
}
