package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/tradesim"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// maxCallRounds bounds the function calls an expert may chain for one
// question.
const maxCallRounds = 8

// Expert is a chat with a model playing a role.
type Expert struct {
	Name        string
	Description string // what the facilitator can expect from this expert
	ModelName   string
	Config      *genai.GenerateContentConfig
	Library     Library
	chat        *genai.Chat
}

// Start opens the expert's chat.
func (e *Expert) Start(ctx context.Context, client *genai.Client) error {
	chat, err := client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return fmt.Errorf("cannot start %s: %w", e.Name, err)
	}
	e.chat = chat
	return nil
}

// Ask sends parts and answers the function calls of the model until it
// replies with text.
func (e *Expert) Ask(ctx context.Context, parts ...*genai.Part) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("expert %s is not started", e.Name)
	}
	for range maxCallRounds {
		resp, err := e.chat.Send(ctx, parts...)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no response from %s", e.Name)
		}

		parts = nil
		var text strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			switch {
			case p.FunctionCall != nil:
				if e.Library == nil {
					return "", fmt.Errorf("%s cannot make function calls", e.Name)
				}
				parts = append(parts, &genai.Part{FunctionResponse: e.Library(ctx, p.FunctionCall)})
			case p.Text != "":
				text.WriteString(p.Text)
			}
		}
		if len(parts) == 0 {
			return text.String(), nil
		}
	}
	return "", fmt.Errorf("%s made too many function calls", e.Name)
}

// Declaration declares the expert as a function taking a question.
func (e *Expert) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        e.Name,
		Description: e.Description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString, Description: "The question to ask."},
			},
			Required: []string{"question"},
		},
		Response: &genai.Schema{Type: genai.TypeString, Description: "The answer."},
	}
}

// Call asks the expert the question in args.
func (e *Expert) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	question, ok := args["question"].(string)
	if !ok {
		return failure(id, e.Name, "argument question must be a string, got %T", args["question"])
	}
	answer, err := e.Ask(ctx, &genai.Part{Text: question})
	if err != nil {
		return failure(id, e.Name, "%s could not answer: %v", e.Name, err)
	}
	tradesim.Logger().Debug("expert answered", zap.String("expert", e.Name), zap.String("question", question), zap.String("answer", answer))
	return &genai.FunctionResponse{ID: id, Name: e.Name, Response: map[string]any{"output": answer}}
}

func failure(id, name, format string, args ...any) *genai.FunctionResponse {
	return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{"error": fmt.Sprintf(format, args...)}}
}
