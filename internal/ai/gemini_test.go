package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyGemini(t *testing.T) {
	blocked := fmt.Errorf("generate: %w", &genai.BlockedError{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	})
	err := classifyGemini(blocked)
	var pe *PolicyError
	assert.ErrorAs(t, err, &pe)
	assert.True(t, IsContentPolicy(err))
	assert.False(t, IsRetryable(err))

	err = classifyGemini(&genai.BlockedError{Candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety}})
	assert.True(t, IsContentPolicy(err))

	err = classifyGemini(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"})
	assert.True(t, IsRetryable(err))

	err = classifyGemini(errors.New("rpc error: RESOURCE_EXHAUSTED"))
	assert.True(t, IsRetryable(err))

	err = classifyGemini(errors.New("dial tcp: refused"))
	assert.False(t, IsContentPolicy(err))
	assert.False(t, IsRetryable(err))
}
