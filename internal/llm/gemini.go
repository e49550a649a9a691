package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"luna/internal/tool"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGemini(ctx context.Context, apiKey, model string, httpClient *http.Client, tools []tool.Descriptor) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		config: geminiConfig(tools),
	}, nil
}

func (g *Gemini) Name() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, history []Turn) (Reply, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(history), g.config)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiReply(resp)
}

func geminiConfig(tools []tool.Descriptor) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	}
	if len(tools) == 0 {
		return cfg
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, d := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  geminiSchema(d),
		})
	}
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}

	return cfg
}

var geminiTypes = map[tool.ParamType]genai.Type{
	tool.String:  genai.TypeString,
	tool.Integer: genai.TypeInteger,
	tool.Number:  genai.TypeNumber,
	tool.Boolean: genai.TypeBoolean,
}

func geminiSchema(d tool.Descriptor) *genai.Schema {
	if len(d.Params) == 0 {
		return nil
	}

	props := make(map[string]*genai.Schema, len(d.Params))
	for _, p := range d.Params {
		props[p.Name] = &genai.Schema{Type: geminiTypes[p.Type], Description: p.Description}
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   d.Required(),
	}
}

func geminiContents(history []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))

	for _, t := range answered(history) {
		switch t.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(t.Text, genai.RoleUser))

		case RoleModel:
			var parts []*genai.Part
			if t.Text != "" {
				parts = append(parts, genai.NewPartFromText(t.Text))
			}
			for _, c := range t.Calls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   c.ID,
					Name: c.Name,
					Args: c.Args,
				}})
			}
			if len(parts) > 0 {
				out = append(out, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case RoleTool:
			parts := make([]*genai.Part, 0, len(t.Results))
			for _, r := range t.Results {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.ID,
					Name:     r.Name,
					Response: map[string]any{"result": r.Output},
				}})
			}
			out = append(out, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}

	return out
}

func geminiReply(resp *genai.GenerateContentResponse) (Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Reply{}, fmt.Errorf("%w: blocked: %s", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return Reply{}, ErrEmptyResponse
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return Reply{}, nil
	}

	var (
		reply Reply
		text  []string
	)
	for _, p := range content.Parts {
		if p == nil || p.Thought {
			continue
		}
		if p.FunctionCall != nil {
			id := p.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			reply.Calls = append(reply.Calls, Call{
				ID:   id,
				Name: p.FunctionCall.Name,
				Args: tool.Args(p.FunctionCall.Args),
			})
			continue
		}
		if p.Text != "" {
			text = append(text, p.Text)
		}
	}
	reply.Text = strings.TrimSpace(strings.Join(text, ""))

	return reply, nil
}
