package assist

import "context"

// Fake is a canned Generator for tests and offline use. Each method returns
// its configured value, or the corresponding error when set.
type Fake struct {
	Sentence    string
	Translation string
	Audio       string

	SentenceErr    error
	TranslationErr error
	AudioErr       error
}

// NewFake returns a Fake with plausible canned output.
func NewFake() *Fake {
	return &Fake{
		Sentence:    "The weather is lovely today. I think I will walk to the market.",
		Translation: "El clima está precioso hoy. Creo que caminaré al mercado.",
		Audio:       "data:audio/mp3;base64,ZmFrZQ==",
	}
}

func (f *Fake) GenerateSentence(_ context.Context, _ string) (string, error) {
	if f.SentenceErr != nil {
		return "", f.SentenceErr
	}
	return f.Sentence, nil
}

func (f *Fake) Translate(_ context.Context, _ string) (string, error) {
	if f.TranslationErr != nil {
		return "", f.TranslationErr
	}
	return f.Translation, nil
}

func (f *Fake) Synthesize(_ context.Context, _ string) (string, error) {
	if f.AudioErr != nil {
		return "", f.AudioErr
	}
	return f.Audio, nil
}
