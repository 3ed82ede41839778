package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("RIFFfake"), data)

		w.Write([]byte(`{"text":"  I brought candy  "}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("test-key", "", WithBaseURL(srv.URL))
	text, err := tr.Transcribe(context.Background(), []byte("RIFFfake"), 16000, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "I brought candy", text)
}

func TestWhisperTranscribeErrors(t *testing.T) {
	_, err := NewWhisperTranscriber("", "").Transcribe(context.Background(), []byte("x"), 16000, "en")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewWhisperTranscriber("k", "").Transcribe(context.Background(), nil, 16000, "en")
	assert.ErrorIs(t, err, ErrEmptyAudio)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err = NewWhisperTranscriber("k", "", WithBaseURL(srv.URL)).Transcribe(context.Background(), []byte("x"), 16000, "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestPrimaryLanguage(t *testing.T) {
	assert.Equal(t, "en", PrimaryLanguage("en-US"))
	assert.Equal(t, "ko", PrimaryLanguage("ko_KR"))
	assert.Equal(t, "ja", PrimaryLanguage("JA"))
	assert.Equal(t, "", PrimaryLanguage(""))
}
