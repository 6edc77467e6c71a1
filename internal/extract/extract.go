// Package extract composes schema-constrained extraction requests and invokes
// the text-generation service. It returns the raw response text unmodified;
// making sense of it is the salvager's job.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkraskou/bankbench/internal/llm"
	"github.com/mkraskou/bankbench/internal/schema"
)

// ErrEmptyResponse indicates the service answered with no content at all.
var ErrEmptyResponse = errors.New("extract: empty model response")

// Service calls the text-generation backend with a fixed output contract.
type Service struct {
	Client llm.Client
	Model  string
}

// Extract requests structured extraction from annotated page markup, with
// optional harvested document text. bankLabel only labels the content block
// in the prompt.
func (s *Service) Extract(ctx context.Context, contentText, documentText, bankLabel string) (string, error) {
	return s.complete(ctx, buildPrompt(contentText, documentText, bankLabel))
}

// ExtractPlain is the text-only fallback request: same schema contract, plain
// visible text instead of annotated markup.
func (s *Service) ExtractPlain(ctx context.Context, plainText, bankLabel string) (string, error) {
	return s.complete(ctx, buildPlainPrompt(plainText, bankLabel))
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("extract: service not configured")
	}
	req := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		N:           1,
	}
	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		// one short-backoff retry on transient transport errors
		sleep(ctx, retryBackoff)
		resp, err = s.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("extraction call (after retry): %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// nullSchema renders the output contract with every field pre-populated as
// null, built from the canonical key list so prompt and record cannot drift.
func nullSchema() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range schema.FieldKeys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%q:null", k)
	}
	sb.WriteByte('}')
	return sb.String()
}

func buildPrompt(contentText, documentText, bankLabel string) string {
	var sb strings.Builder
	sb.WriteString("Ты профессиональный парсер банковских продуктов.\n")
	sb.WriteString("Ты НЕ объясняешь и НЕ добавляешь комментарии.\n")
	sb.WriteString("Твоя задача — извлечь данные и вернуть JSON.\n\n")
	sb.WriteString("НУЖНЫ СТРОГО ЭТИ ПОЛЯ:\n")
	sb.WriteString(fieldList)
	sb.WriteString("\nПРАВИЛА:\n")
	sb.WriteString("- Если данных нет — null (без кавычек)\n")
	sb.WriteString("- Возвращай ОДНУ строку JSON\n")
	sb.WriteString("- Без пояснений, без ```\n")
	sb.WriteString("- Элементы с атрибутом data-critical содержат ключевые условия\n")
	if documentText != "" {
		sb.WriteString("- Текст документов точнее страницы: для числовых условий бери значения из документов\n")
	}
	fmt.Fprintf(&sb, "\nHTML СТРАНИЦЫ (%s, %d символов):\n", bankLabel, len([]rune(contentText)))
	sb.WriteString(contentText)
	if documentText != "" {
		sb.WriteString("\n\nТЕКСТ ДОКУМЕНТОВ (PDF):\n")
		sb.WriteString(documentText)
	}
	sb.WriteString("\n\nВЫВОД:\n")
	sb.WriteString(nullSchema())
	return sb.String()
}

func buildPlainPrompt(plainText, bankLabel string) string {
	var sb strings.Builder
	sb.WriteString("Ты профессиональный парсер банковских продуктов.\n\n")
	sb.WriteString("НИЖЕ НЕ HTML.\n")
	sb.WriteString("ЭТО ОЧИЩЕННЫЙ ТЕКСТ СТРАНИЦЫ.\n\n")
	sb.WriteString("Извлеки те же поля:\n")
	sb.WriteString(fieldList)
	sb.WriteString("\nЕсли данных нет — null.\n")
	fmt.Fprintf(&sb, "\nТЕКСТ (%s):\n", bankLabel)
	sb.WriteString(plainText)
	sb.WriteString("\n\nВЫВОД (ОДНА строка JSON):\n")
	sb.WriteString(nullSchema())
	return sb.String()
}

var fieldList = func() string {
	var sb strings.Builder
	captions := map[string]string{
		"name":            "название продукта",
		"rate":            "процентная ставка",
		"rate_type":       "тип ставки (фиксированная/переменная)",
		"sum":             "сумма кредита",
		"term":            "срок",
		"payment_type":    "тип платежа",
		"commission":      "комиссии",
		"early_repayment": "условия досрочного погашения",
		"insurance":       "страхование",
		"currency":        "валюта",
		"additional":      "доп. условия",
		"files":           "упомянутые документы",
	}
	for i, k := range schema.FieldKeys {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, k, captions[k])
	}
	return sb.String()
}()

const retryBackoff = 100 * time.Millisecond

// sleep waits without outliving the caller's context.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
