// extract-stub is a local OpenAI-compatible stand-in for the extraction
// service, for offline runs against the real pipeline. It answers every
// chat completion with a canned product record, wrapped in code fences to
// exercise the salvager.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const cannedRecord = `{"name":"Тестовый кредит","rate":"12,5%","rate_type":"фиксированная",` +
	`"sum":"до 10 000 BYN","term":"до 5 лет","payment_type":null,"commission":"нет",` +
	`"early_repayment":"без штрафов","insurance":null,"currency":"BYN","additional":null,"files":null}`

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "stub-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		content := "```json\n" + cannedRecord + "\n```"
		if len(req.Messages) > 0 && strings.Contains(req.Messages[len(req.Messages)-1].Content, "НИЖЕ НЕ HTML") {
			// text-only fallback request: answer without fences
			content = cannedRecord
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "stub",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	})

	log.Printf("extract-stub listening on %s (model %s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
