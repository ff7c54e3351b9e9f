package assist

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIConfig configures the OpenAI-backed Generator. Zero values produce
// defaults; only APIKey is required.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string        // zero → https://api.openai.com/v1
	ChatModel      string        // zero → gpt-4o-mini
	TTSModel       string        // zero → tts-1
	Voice          string        // zero → alloy
	TargetLanguage string        // zero → Spanish
	Timeout        time.Duration // zero → 20s; bounds every outbound call
}

// OpenAI implements Generator against the OpenAI chat-completions and
// speech endpoints.
type OpenAI struct {
	apiKey         string
	baseURL        string
	chatModel      string
	ttsModel       string
	voice          string
	targetLanguage string
	client         *http.Client
}

// NewOpenAI creates an OpenAI generator from the given config.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "Spanish"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &OpenAI{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		chatModel:      cfg.ChatModel,
		ttsModel:       cfg.TTSModel,
		voice:          cfg.Voice,
		targetLanguage: cfg.TargetLanguage,
		client:         &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateSentence asks the chat model for a short practice paragraph.
func (o *OpenAI) GenerateSentence(ctx context.Context, topic string) (string, error) {
	prompt := "Write one short English paragraph (2-3 simple sentences) suitable for a beginner language learner."
	if topic != "" {
		prompt += " The topic is: " + topic
	}
	return o.complete(ctx, prompt)
}

// Translate asks the chat model for a translation into the target language.
func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Translate the following English text into %s. Reply with the translation only:\n\n%s", o.targetLanguage, text)
	return o.complete(ctx, prompt)
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model": o.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	body, err := o.post(ctx, "/chat/completions", "application/json", reqBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openai response parse error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize calls the speech endpoint and returns the audio as an mp3
// data URI, ready to be stored on a card.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"model": o.ttsModel,
		"voice": o.voice,
		"input": text,
	})
	if err != nil {
		return "", err
	}

	audio, err := o.post(ctx, "/audio/speech", "application/json", reqBody)
	if err != nil {
		return "", err
	}
	return "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(audio), nil
}

func (o *OpenAI) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
