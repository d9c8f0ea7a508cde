package bookstack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

func TestDownloader_Fetch(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("same origin carries the source token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Token abc:s3cret", r.Header.Get("Authorization"))
			w.Write(image)
		}))
		defer server.Close()

		d := NewDownloader(NewCredentials(server.URL, "abc", "s3cret"), testLogger())
		d.httpClient = server.Client()

		data, err := d.Fetch(context.Background(), server.URL+"/uploads/images/cover_book/guide.png")
		require.NoError(t, err)
		assert.Equal(t, image, data)
	})

	t.Run("foreign origin gets no token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Write(image)
		}))
		defer server.Close()

		d := NewDownloader(NewCredentials("https://wiki.example.com", "abc", "s3cret"), testLogger())
		d.httpClient = server.Client()

		_, err := d.Fetch(context.Background(), server.URL+"/cover.png")
		require.NoError(t, err)
	})

	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "empty body", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer server.Close()

			d := NewDownloader(NewCredentials(server.URL, "abc", "s3cret"), testLogger())
			d.httpClient = server.Client()

			_, err := d.Fetch(context.Background(), server.URL+"/cover.png")
			assert.ErrorIs(t, err, domainerrors.ErrDownload)
		})
	}

	t.Run("empty url", func(t *testing.T) {
		d := NewDownloader(NewCredentials("https://wiki.example.com", "abc", "s3cret"), testLogger())
		_, err := d.Fetch(context.Background(), "")
		assert.ErrorIs(t, err, domainerrors.ErrDownload)
	})
}

func TestCredentials(t *testing.T) {
	c := NewCredentials(" https://wiki.example.com/ ", "id", "secret")
	assert.Equal(t, "https://wiki.example.com", c.BaseURL())
	assert.Equal(t, "Token id:secret", c.AuthorizationHeader())
	assert.NotContains(t, c.String(), "secret")

	assert.True(t, c.SameOrigin("https://wiki.example.com/uploads/a.png"))
	assert.True(t, c.SameOrigin("https://WIKI.example.com/a.png"))
	assert.False(t, c.SameOrigin("http://wiki.example.com/a.png"))
	assert.False(t, c.SameOrigin("https://cdn.example.com/a.png"))

	side, err := ParseSide(" Destination ")
	require.NoError(t, err)
	assert.Equal(t, SideDestination, side)

	_, err = ParseSide("mirror")
	assert.Error(t, err)
}
