package groq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://api.groq.com/openai/v1"
	whisperModel    = "whisper-large-v3"
)

// Config настройки клиента распознавания речи Groq Whisper.
type Config struct {
	APIKey   string // ключ из окружения (GROQ_API_KEY)
	BaseURL  string // по умолчанию https://api.groq.com/openai/v1
	Language string // например, "ru"
}

// Client распознаёт голосовые сообщения через Groq Whisper
// (OpenAI-совместимый audio/transcriptions API).
// Конвертация аудиоконтейнера не требуется: Whisper принимает ogg/opus как есть.
type Client struct {
	client   *openai.Client
	language string
	logger   *zap.SugaredLogger
}

// New создаёт клиент, без обращения к сети.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq stt: пустой API key (ожидается GROQ_API_KEY)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "ru"
	}
	oc := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &Client{client: &oc, language: cfg.Language, logger: logger}, nil
}

// Transcribe отправляет аудио в Whisper и возвращает распознанный текст.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	start := time.Now()
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:    whisperModel,
		File:     openai.File(audio, filename, "audio/ogg"),
		Language: openai.String(c.language),
	})
	if err != nil {
		c.logger.Errorw("Ошибка транскрипции", "duration", time.Since(start).String(), "error", err)
		return "", fmt.Errorf("groq stt: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	c.logger.Infow("Аудио транскрибировано", "duration", time.Since(start).String(), "length", len(text))
	return text, nil
}
