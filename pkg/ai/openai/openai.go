package openai

import (
	"sync"

	"kgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GraphOpenAIClient implements the ai.GraphAIClient interface against any
// OpenAI-compatible chat endpoint. Local servers such as llama.cpp and vLLM
// expose this API, which makes it the fallback adapter when the backend is
// not Ollama.
type GraphOpenAIClient struct {
	extractionModel string

	baseURL string
	apiKey  string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
type NewGraphOpenAIClientParams struct {
	ExtractionModel string

	BaseURL string
	ApiKey  string
}

// NewGraphOpenAIClient creates and returns a new OpenAI-compatible client
// configured with the provided parameters.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ExtractionModel: "llama-3.1-8b-instruct",
//		BaseURL:         "http://localhost:8000/v1",
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}

	client := openai.NewClient(options...)

	return &GraphOpenAIClient{
		extractionModel: params.ExtractionModel,

		baseURL: params.BaseURL,
		apiKey:  params.ApiKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient: &client,
	}
}
