package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeClient struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.responses) {
		content = f.responses[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func TestExtract_PromptContract(t *testing.T) {
	client := &fakeClient{responses: []string{`{"name":"X"}`}}
	s := &Service{Client: client, Model: "test-model"}

	out, err := s.Extract(context.Background(), "<p data-critical=\"important\">ставка 12%</p>", "текст документа", "МТБанк")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"name":"X"}` {
		t.Fatalf("raw response must pass through unmodified: %q", out)
	}

	prompt := client.prompts[0]
	for _, want := range []string{
		`"name":null`, `"rate":null`, `"rate_type":null`, `"files":null`,
		"МТБанк",
		"ставка 12%",
		"ТЕКСТ ДОКУМЕНТОВ",
		"из документов",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestExtract_NoDocumentTextOmitsDocumentBlock(t *testing.T) {
	client := &fakeClient{responses: []string{"{}"}}
	s := &Service{Client: client, Model: "test-model"}
	if _, err := s.Extract(context.Background(), "content", "", "Сбер"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(client.prompts[0], "ТЕКСТ ДОКУМЕНТОВ") {
		t.Fatal("document block present without document text")
	}
}

func TestExtractPlain_UsesTextContract(t *testing.T) {
	client := &fakeClient{responses: []string{"{}"}}
	s := &Service{Client: client, Model: "test-model"}
	if _, err := s.ExtractPlain(context.Background(), "ставка 12%", "ВТБ"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(client.prompts[0], "НИЖЕ НЕ HTML") {
		t.Fatal("plain prompt must state the content is not markup")
	}
}

func TestExtract_RetriesOnceThenFails(t *testing.T) {
	boom := errors.New("transport down")
	client := &fakeClient{errs: []error{boom, boom}}
	s := &Service{Client: client, Model: "test-model"}
	if _, err := s.Extract(context.Background(), "content", "", "БНБ"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if len(client.prompts) != 2 {
		t.Fatalf("expected exactly two attempts, got %d", len(client.prompts))
	}
}

func TestExtract_EmptyResponse(t *testing.T) {
	client := &fakeClient{responses: []string{"   "}}
	s := &Service{Client: client, Model: "test-model"}
	if _, err := s.Extract(context.Background(), "content", "", "БНБ"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
