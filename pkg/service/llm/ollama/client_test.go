package ollama_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/service/llm/ollama"
)

func TestStreamDeliversChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"response": "hello ", "done": false}`)
		fmt.Fprintln(w, `{"response": "world", "done": false}`)
		fmt.Fprintln(w, `{"response": "", "done": true}`)
	}))
	t.Cleanup(server.Close)

	client := ollama.New(ollama.WithBaseURL(server.URL))
	ch, err := client.Stream(context.Background(), "say hello")
	gt.NoError(t, err).Required()

	text := ""
	done := false
	for chunk := range ch {
		gt.Value(t, chunk.Err).Nil()
		text += chunk.Text
		done = done || chunk.Done
	}
	gt.Value(t, text).Equal("hello world")
	gt.Bool(t, done).True()
}

func TestStreamAbortReleasesProducer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"response": "first", "done": false}`)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	base := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	client := ollama.New(ollama.WithBaseURL(server.URL))
	ch, err := client.Stream(ctx, "keep talking")
	gt.NoError(t, err).Required()

	chunk := <-ch
	gt.Value(t, chunk.Text).Equal("first")

	// abandon the channel without draining; the producer must not
	// park on a send after the consumer gives up
	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for runtime.NumGoroutine() > base && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	gt.Number(t, runtime.NumGoroutine()).LessOrEqual(base)
}
