package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGenerateSentence(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(chatResponse("A short paragraph.")))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	got, err := o.GenerateSentence(context.Background(), "the weather")
	if err != nil {
		t.Fatalf("GenerateSentence: %v", err)
	}
	if got != "A short paragraph." {
		t.Errorf("got %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestTranslateSendsTargetLanguage(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		w.Write([]byte(chatResponse("El clima está precioso hoy.")))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, TargetLanguage: "French"})
	got, err := o.Translate(context.Background(), "The weather is lovely today.")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got == "" {
		t.Error("expected a translation")
	}
	if !strings.Contains(gotPrompt, "French") {
		t.Errorf("prompt %q should name the target language", gotPrompt)
	}
}

func TestSynthesizeReturnsDataURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %s, want /audio/speech", r.URL.Path)
		}
		w.Write([]byte{0xFF, 0xF3, 0x01, 0x02}) // arbitrary mp3-ish bytes
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	got, err := o.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasPrefix(got, "data:audio/mp3;base64,") {
		t.Errorf("got %q, want a data URI", got)
	}
}

func TestNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := o.GenerateSentence(context.Background(), ""); err == nil {
		t.Error("expected an error for a 429 response")
	}
}

func TestMalformedResponseIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := o.Translate(context.Background(), "x"); err == nil {
		t.Error("expected an error for a malformed response")
	}
}

func TestTimeoutBoundsTheCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chatResponse("too late")))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if _, err := o.GenerateSentence(context.Background(), ""); err == nil {
		t.Error("expected a timeout error")
	}
}
