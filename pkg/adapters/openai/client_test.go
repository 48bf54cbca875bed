package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	adapter "github.com/aretw0/conserje/pkg/adapters/openai"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	chatReq  openai.ChatCompletionRequest
	chatResp openai.ChatCompletionResponse
	embResp  openai.EmbeddingResponse
	err      error
}

func (f *fakeAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.chatReq = req
	return f.chatResp, f.err
}

func (f *fakeAPI) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	return f.embResp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
	}}
}

func TestCompleter_BuildsRequest(t *testing.T) {
	api := &fakeAPI{chatResp: reply("  Claro.  ")}
	c := adapter.NewCompleter(api, adapter.Config{})

	out, err := c.Complete(context.Background(), ports.CompletionRequest{
		System:      "sistema",
		User:        "hola",
		History:     []domain.Message{{Role: domain.RoleUser, Content: "a"}, {Role: domain.RoleAssistant, Content: "b"}},
		MaxTokens:   120,
		Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Claro.", out)

	req := api.chatReq
	assert.Equal(t, adapter.DefaultChatModel, req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "hola", req.Messages[3].Content)
	assert.Equal(t, 120, req.MaxTokens)
	assert.Nil(t, req.ResponseFormat)
}

func TestCompleter_ClassifyUsesJSONAndSmallModel(t *testing.T) {
	api := &fakeAPI{chatResp: reply(`{"intent":"descanso"}`)}
	c := adapter.NewCompleter(api, adapter.Config{ClassifyModel: "mini"})

	_, err := c.Complete(context.Background(), ports.CompletionRequest{User: "x", Purpose: ports.PurposeClassify, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "mini", api.chatReq.Model)
	require.NotNil(t, api.chatReq.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, api.chatReq.ResponseFormat.Type)
}

func TestCompleter_Failures(t *testing.T) {
	t.Run("API Error", func(t *testing.T) {
		c := adapter.NewCompleter(&fakeAPI{err: errors.New("429")}, adapter.Config{})
		_, err := c.Complete(context.Background(), ports.CompletionRequest{User: "x"})
		assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
	})

	t.Run("No Choices", func(t *testing.T) {
		c := adapter.NewCompleter(&fakeAPI{}, adapter.Config{})
		_, err := c.Complete(context.Background(), ports.CompletionRequest{User: "x"})
		assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
	})
}

func TestEmbedder_OrdersByIndex(t *testing.T) {
	api := &fakeAPI{embResp: openai.EmbeddingResponse{Data: []openai.Embedding{
		{Index: 1, Embedding: []float32{0, 1}},
		{Index: 0, Embedding: []float32{1, 0}},
	}}}
	e := adapter.NewEmbedder(api, adapter.Config{})

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, adapter.DefaultEmbedModel, e.Model())
}

func TestEmbedder_CountMismatch(t *testing.T) {
	api := &fakeAPI{embResp: openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 0}}}}
	_, err := adapter.NewEmbedder(api, adapter.Config{}).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	vectors, err := adapter.NewEmbedder(&fakeAPI{err: errors.New("unused")}, adapter.Config{}).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNewAPI_AgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply("desde el servidor"))
	}))
	defer srv.Close()

	api, err := adapter.NewAPI(adapter.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	out, err := adapter.NewCompleter(api, adapter.Config{}).Complete(context.Background(), ports.CompletionRequest{User: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "desde el servidor", out)
}

func TestNewAPI_RequiresKey(t *testing.T) {
	_, err := adapter.NewAPI(adapter.Config{})
	assert.Error(t, err)
}
