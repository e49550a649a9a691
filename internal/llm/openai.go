package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"luna/internal/tool"
)

const DefaultOpenAIModel = openai.ChatModelGPT4oMini

type OpenAI struct {
	client openai.Client
	model  string
	tools  []openai.ChatCompletionToolUnionParam
}

func NewOpenAIClient(apiKey string, httpClient *http.Client, opts ...option.RequestOption) openai.Client {
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		base = append(base, option.WithHTTPClient(httpClient))
	}
	return openai.NewClient(append(base, opts...)...)
}

func NewOpenAI(client openai.Client, model string, tools []tool.Descriptor) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: client, model: model, tools: openaiTools(tools)}
}

func (o *OpenAI) Name() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, history []Turn) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: openaiMessages(history),
	}
	if len(o.tools) > 0 {
		params.Tools = o.tools
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	reply := Reply{Text: strings.TrimSpace(msg.Content)}

	for _, tc := range msg.ToolCalls {
		args, err := tool.ParseArgs(tc.Function.Arguments)
		if err != nil {
			log.Warn("Bad tool arguments from model", "tool", tc.Function.Name, "err", err)
			args = tool.Args{}
		}
		reply.Calls = append(reply.Calls, Call{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}

	return reply, nil
}

func openaiTools(tools []tool.Descriptor) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))

	for _, d := range tools {
		props := make(map[string]any, len(d.Params))
		for _, p := range d.Params {
			prop := map[string]any{"type": string(p.Type)}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[p.Name] = prop
		}

		required := d.Required()
		if required == nil {
			required = []string{}
		}

		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		}))
	}

	return out
}

func openaiMessages(history []Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	out = append(out, openai.SystemMessage(SystemPrompt))

	for _, t := range answered(history) {
		switch t.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(t.Text))

		case RoleModel:
			msg := openai.ChatCompletionAssistantMessageParam{}
			if t.Text != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(t.Text)}
			}
			for _, c := range t.Calls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: c.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      c.Name,
							Arguments: c.Args.JSON(),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})

		case RoleTool:
			for _, r := range t.Results {
				out = append(out, openai.ToolMessage(r.Output, r.ID))
			}
		}
	}

	return out
}
