package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-tutor-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title> Photosynthesis basics </title><style>p{color:red}</style></head>
<body><nav>Home | About</nav>
<h1>Photosynthesis</h1>
<p>Plants turn   light into energy.</p>
<script>var tracking = true;</script>
<p>Chlorophyll absorbs red and blue light.</p>
</body></html>`

func TestHTMLText(t *testing.T) {
	title, text, err := HTMLText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis basics", title)
	assert.Contains(t, text, "Plants turn light into energy.")
	assert.Contains(t, text, "Chlorophyll absorbs red and blue light.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Home | About")
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, page)
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "just text")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := New(Config{}, nil)
	ctx := context.Background()

	got, err := e.FromURL(ctx, srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis basics", got.Title)
	assert.Contains(t, got.Text, "Chlorophyll")

	got, err = e.FromURL(ctx, srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "just text", got.Text)

	_, err = e.FromURL(ctx, srv.URL+"/missing")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = e.FromURL(ctx, "ftp://example.com/file")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestFromUpload(t *testing.T) {
	var gotType string
	tika := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		gotType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, "extracted pdf text")
	}))
	defer tika.Close()

	ctx := context.Background()

	t.Run("plain text is read directly", func(t *testing.T) {
		text, err := New(Config{}, nil).FromUpload(ctx, "notes.txt", "text/plain; charset=utf-8", []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("pdf goes through tika", func(t *testing.T) {
		text, err := New(Config{TikaURL: tika.URL + "/"}, nil).FromUpload(ctx, "a.pdf", "application/pdf", []byte("%PDF"))
		require.NoError(t, err)
		assert.Equal(t, "extracted pdf text", text)
		assert.Equal(t, "application/pdf", gotType)
	})

	t.Run("pdf without tika is rejected", func(t *testing.T) {
		_, err := New(Config{}, nil).FromUpload(ctx, "a.pdf", "application/pdf", []byte("%PDF"))
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := New(Config{}, nil).FromUpload(ctx, "a.png", "image/png", []byte{0x89})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("invalid utf8 is rejected", func(t *testing.T) {
		_, err := New(Config{}, nil).FromUpload(ctx, "a.txt", "text/plain", []byte{0xff, 0xfe})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}
