package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "whisper-1"
)

var (
	ErrMissingAPIKey = errors.New("stt: missing api key")
	ErrEmptyAudio    = errors.New("stt: empty audio")
)

// Transcriber turns recorded audio (WAV bytes) into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, sampleRate int, languageCode string) (string, error)
}

type WhisperTranscriber struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type Option func(*WhisperTranscriber)

func WithBaseURL(url string) Option {
	return func(w *WhisperTranscriber) {
		if url != "" {
			w.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(w *WhisperTranscriber) { w.client = c }
}

var _ Transcriber = (*WhisperTranscriber)(nil)

func NewWhisperTranscriber(apiKey, model string, opts ...Option) *WhisperTranscriber {
	if model == "" {
		model = DefaultModel
	}
	w := &WhisperTranscriber{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PrimaryLanguage reduces a tag like "en-US" to "en".
func PrimaryLanguage(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}

// Transcribe posts the audio as a multipart upload. sampleRate is informative
// only; the WAV header already carries it.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, sampleRate int, languageCode string) (string, error) {
	if w.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "speech.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	fields := map[string]string{
		"model":           w.model,
		"response_format": "json",
	}
	if lang := PrimaryLanguage(languageCode); lang != "" {
		fields["language"] = lang
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	if sampleRate > 0 {
		req.Header.Set("X-Sample-Rate", strconv.Itoa(sampleRate))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
