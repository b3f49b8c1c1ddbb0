package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

// Faults configures optional fault injection for the mock backends. Both
// knobs default to off; they exist so failure paths can be exercised
// deliberately from configuration instead of an unconditional probability.
type Faults struct {
	// Latency is added to every call before a response is produced.
	Latency time.Duration
	// FailureRate in [0,1] is the probability a call fails with
	// ErrUnavailable.
	FailureRate float64
}

var completionReplies = []string{
	"That's an interesting point. Could you tell me more about what you mean?",
	"I see what you're getting at. Here's one way to think about it.",
	"Good question. The short answer is that it depends on the context.",
	"Let me break that down into a couple of parts for you.",
	"There are a few angles on this worth considering.",
}

var transcriptionSamples = []string{
	"Hello, this is a test recording.",
	"Could you add milk and eggs to the shopping list?",
	"The meeting has been moved to three o'clock on Thursday.",
	"Remember to check the deployment logs before the release.",
}

// MockCompletion is a canned-response stand-in for a real inference service.
type MockCompletion struct {
	faults Faults
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewMockCompletion creates a mock completion backend.
func NewMockCompletion(faults Faults) *MockCompletion {
	return &MockCompletion{
		faults: faults,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Complete returns a canned assistant reply. The reply is chosen
// deterministically from the last user message so repeated requests are
// stable; the web-search flag yields a visibly different shape.
func (m *MockCompletion) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if err := m.simulate(ctx); err != nil {
		return CompletionResult{}, err
	}

	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Text
	}
	reply := completionReplies[pick(last, len(completionReplies))]
	if req.WebSearch {
		reply = fmt.Sprintf("Based on a quick search: %s", reply)
	}

	return CompletionResult{Role: "assistant", Content: reply}, nil
}

// MockTranscription is a canned-response stand-in for a speech-to-text
// service.
type MockTranscription struct {
	faults Faults
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewMockTranscription creates a mock transcription backend.
func NewMockTranscription(faults Faults) *MockTranscription {
	return &MockTranscription{
		faults: faults,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Transcribe returns a canned transcript chosen deterministically from the
// payload length.
func (m *MockTranscription) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := m.simulate(ctx); err != nil {
		return "", err
	}
	return transcriptionSamples[len(audio)%len(transcriptionSamples)], nil
}

func (m *MockCompletion) simulate(ctx context.Context) error {
	return simulate(ctx, m.faults, &m.mu, m.rng)
}

func (m *MockTranscription) simulate(ctx context.Context) error {
	return simulate(ctx, m.faults, &m.mu, m.rng)
}

// simulate applies configured latency and failure injection, honoring
// context cancellation during the artificial delay.
func simulate(ctx context.Context, faults Faults, mu *sync.Mutex, rng *rand.Rand) error {
	if faults.Latency > 0 {
		select {
		case <-time.After(faults.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if faults.FailureRate > 0 {
		mu.Lock()
		roll := rng.Float64()
		mu.Unlock()
		if roll < faults.FailureRate {
			return ErrUnavailable
		}
	}
	return nil
}

func pick(s string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32()) % n
}
