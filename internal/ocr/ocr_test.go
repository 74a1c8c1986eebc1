package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguageAndModel(t *testing.T) {
	lang, err := ParseLanguage("")
	require.NoError(t, err)
	assert.Equal(t, Language("ru"), lang)

	_, err = ParseLanguage("zz")
	assert.Error(t, err)

	model, err := ParseModelType("")
	require.NoError(t, err)
	assert.Equal(t, Printed, model)

	_, err = ParseModelType("typewriter")
	assert.Error(t, err)

	assert.Len(t, Languages(), 6)
	assert.Len(t, ModelTypes(), 3)
}

func TestStats(t *testing.T) {
	s := Stats("Дело №123\nФонд 10")
	assert.Equal(t, 17, s.TextLength)
	assert.Equal(t, 4, s.WordCount)
	assert.Equal(t, 15, s.CharacterCount)
	assert.Equal(t, 2, s.LineCount)
}

func TestStub(t *testing.T) {
	res, err := Stub{}.Recognize(context.Background(), Input{Language: "ru", Model: Mixed})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "15.03.2024")
	assert.Equal(t, SourceStub, res.Source)

	res, err = Stub{}.Recognize(context.Background(), Input{Language: "de"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "printed text in English")
	assert.Equal(t, Printed, res.Model)
}

func TestDocument_TextLayer(t *testing.T) {
	d := &Document{Fallback: Stub{}}
	res, err := d.Recognize(context.Background(), Input{
		Filename: "spravka.txt",
		Data:     []byte("Иванов И.И.\n\n05.04.1960"),
		Language: "ru",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceTextLayer, res.Source)
	assert.Equal(t, "Иванов И.И.\n05.04.1960", res.Text)
}

func TestDocument_ImagesGoToFallback(t *testing.T) {
	d := &Document{Fallback: Stub{}}
	res, err := d.Recognize(context.Background(), Input{Filename: "scan.tiff", Data: []byte{1, 2, 3}, Language: "ru", Model: Printed})
	require.NoError(t, err)
	assert.Equal(t, SourceStub, res.Source)
}

func TestDocument_EmptyTextLayerGoesToFallback(t *testing.T) {
	d := &Document{Fallback: Stub{}}
	res, err := d.Recognize(context.Background(), Input{Filename: "blank.txt", Data: []byte("  \n\n ")})
	require.NoError(t, err)
	assert.Equal(t, SourceStub, res.Source)
}

func TestDocument_NoFallback(t *testing.T) {
	d := &Document{}
	_, err := d.Recognize(context.Background(), Input{Filename: "scan.jpg"})
	assert.Error(t, err)
}

func TestRemote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		img, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, "PNG", string(img))
		assert.Equal(t, "handwritten", req.ModelType)

		json.NewEncoder(w).Encode(map[string]any{"text": "Иванов И.И.", "confidence": 0.91})
	}))
	defer srv.Close()

	c := NewRemote(srv.URL+"/", "secret", time.Second)
	defer c.Close()

	res, err := c.Recognize(context.Background(), Input{Filename: "a.png", Data: []byte("PNG"), Language: "ru", Model: Handwritten})
	require.NoError(t, err)
	assert.Equal(t, "Иванов И.И.", res.Text)
	assert.Equal(t, SourceRemote, res.Source)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
}

func TestRemote_Retryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "", time.Second).Recognize(context.Background(), Input{Filename: "a.png"})
	var retryErr *RetryableError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, http.StatusServiceUnavailable, retryErr.StatusCode)
}

func TestRemote_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "", time.Second).Recognize(context.Background(), Input{Filename: "a.png"})
	require.Error(t, err)
	var retryErr *RetryableError
	assert.False(t, errors.As(err, &retryErr))
}

func TestRemote_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"unreadable","message":"blank page"}}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "", time.Second).Recognize(context.Background(), Input{Filename: "a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank page")
}
