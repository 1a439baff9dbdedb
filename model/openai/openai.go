// Package openai implements model.Model on the OpenAI Chat Completions API,
// including tool calling and streaming.
package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// Options configures the adapter.
type Options struct {
	Model               string
	APIKey              string
	BaseURL             string
	Temperature         float64 // zero leaves the provider default
	MaxCompletionTokens int64
}

// Model talks to OpenAI through the official client.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               "gpt-5.2",
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// NewModel creates a model with its own client. Without an APIKey the client
// reads OPENAI_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient wraps an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

// Info describes the model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai", SupportsTools: true}
}

// Generate sends req and emits the completion. With req.Stream, text and
// tool call deltas are emitted as partial responses before the final one.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.params(req)
		var err error
		if req.Stream {
			err = m.stream(ctx, params, out)
		} else {
			err = m.complete(ctx, params, out)
		}
		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

func (m *Model) params(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            toMessages(req),
		Model:               m.opts.Model,
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if m.opts.Temperature > 0 {
		params.Temperature = openai.Float(m.opts.Temperature)
	}
	if tools := toTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	if req.Stream {
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	}
	return params
}

// toMessages converts the transcript. OpenAI requires every tool result to
// directly follow the assistant message holding the call, so results are
// indexed by call id and emitted right after their call. Results whose call
// is not in the transcript are appended at the end.
func toMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	results := map[string]string{}
	var resultOrder []string
	for _, c := range req.Contents {
		if c.Role != "tool" {
			continue
		}
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.ID == "" {
				continue
			}
			if _, dup := results[fr.FunctionResponse.ID]; dup {
				continue
			}
			results[fr.FunctionResponse.ID] = model.ResponseText(fr.FunctionResponse)
			resultOrder = append(resultOrder, fr.FunctionResponse.ID)
		}
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instructions))
	}

	for _, c := range req.Contents {
		text := c.Text()
		switch c.Role {
		case "tool":
		case "system":
			msgs = append(msgs, openai.SystemMessage(text))
		case "assistant":
			calls := toToolCalls(c)
			if len(calls) == 0 {
				msgs = append(msgs, openai.AssistantMessage(text))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
			for _, call := range calls {
				if res, ok := results[call.ID]; ok {
					msgs = append(msgs, openai.ToolMessage(res, call.ID))
					delete(results, call.ID)
				}
			}
		default:
			if text != "" {
				msgs = append(msgs, openai.UserMessage(text))
			}
		}
	}

	for _, id := range resultOrder {
		if res, ok := results[id]; ok {
			msgs = append(msgs, openai.ToolMessage(res, id))
		}
	}
	return msgs
}

func toToolCalls(c core.Content) []openai.ChatCompletionMessageToolCallParam {
	var calls []openai.ChatCompletionMessageToolCallParam
	for _, p := range c.Parts {
		fc, ok := p.(core.FunctionCallPart)
		if !ok {
			continue
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: fc.FunctionCall.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.FunctionCall.Name,
				Arguments: fc.FunctionCall.Arguments,
			},
		})
	}
	return calls
}

func toTools(defs []model.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Function.Name,
				Description: openai.String(d.Function.Description),
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return tools
}

func (m *Model) complete(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai: completion has no choices")
	}

	choice := resp.Choices[0]
	parts := make([]core.Part, 0, len(choice.Message.ToolCalls)+1)
	if choice.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}

	out <- model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: choice.FinishReason,
		Usage:        toUsage(resp.Usage),
	}
	return nil
}

func toUsage(u openai.CompletionUsage) *model.TokenUsage {
	return &model.TokenUsage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}

func (m *Model) stream(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	s := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer s.Close()

	acc := newAccumulator()
	for s.Next() {
		chunk := s.Current()
		if acc.id == "" {
			acc.id = chunk.ID
		}
		if chunk.Usage.TotalTokens > 0 {
			acc.usage = toUsage(chunk.Usage)
		}
		for _, choice := range chunk.Choices {
			for _, partial := range acc.add(choice) {
				out <- partial
			}
			if choice.FinishReason != "" {
				acc.finish = choice.FinishReason
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}

	out <- acc.final()
	return nil
}

// accumulator rebuilds a completion from stream deltas. Tool calls arrive
// split across chunks and are keyed by their index.
type accumulator struct {
	id     string
	text   strings.Builder
	calls  map[int64]*core.FunctionCall
	finish string
	usage  *model.TokenUsage
}

func newAccumulator() *accumulator {
	return &accumulator{calls: map[int64]*core.FunctionCall{}}
}

func (a *accumulator) add(choice openai.ChatCompletionChunkChoice) []model.Response {
	var partials []model.Response

	if delta := choice.Delta.Content; delta != "" {
		a.text.WriteString(delta)
		partials = append(partials, partial(core.TextPart{Text: delta}))
	}

	for _, tc := range choice.Delta.ToolCalls {
		call, ok := a.calls[tc.Index]
		if !ok {
			call = &core.FunctionCall{}
			a.calls[tc.Index] = call
		}
		if tc.ID != "" {
			call.ID = tc.ID
		}
		if tc.Function.Name != "" {
			call.Name = tc.Function.Name
		}
		call.Arguments += tc.Function.Arguments
		partials = append(partials, partial(core.FunctionCallPart{FunctionCall: *call}))
	}

	return partials
}

func (a *accumulator) final() model.Response {
	parts := make([]core.Part, 0, len(a.calls)+1)
	if a.text.Len() > 0 {
		parts = append(parts, core.TextPart{Text: a.text.String()})
	}

	indexes := make([]int64, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	for _, i := range indexes {
		parts = append(parts, core.FunctionCallPart{FunctionCall: *a.calls[i]})
	}

	return model.Response{
		ID:           a.id,
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: a.finish,
		Usage:        a.usage,
	}
}

func partial(p core.Part) model.Response {
	return model.Response{
		Partial: true,
		Content: core.Content{Role: "assistant", Parts: []core.Part{p}},
	}
}
