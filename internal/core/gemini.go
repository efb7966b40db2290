package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
	"makwenta.app/finance-assistant/internal/config"
)

const (
	defaultPlannerModelName = "gemini-1.5-flash-latest"

	plannerSystemInstruction = "You are Makwenta, a helpful personal finance assistant. " +
		"You MUST use the provided tools for recording transactions, reporting spending, " +
		"checking budgets, managing goals and managing recurring expenses. " +
		"After recording a transaction you must follow up with the check_budget tool. " +
		"Never invent figures and never do the arithmetic yourself: every number in your " +
		"answer must come from a tool result. Dates are always YYYY-MM-DD. " +
		"Keep answers concise and grounded in the tool results."
)

// GeminiPlanner implements Planner on top of Gemini function calling.
type GeminiPlanner struct {
	client *genai.Client
	model  string
}

func NewGeminiPlanner() *GeminiPlanner {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &GeminiPlanner{
		client: client,
		model:  defaultPlannerModelName,
	}
}

func (p *GeminiPlanner) Close() {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

// Decide submits the transcript and catalog to Gemini and maps the reply to
// a Decision. Function-call parts become tool calls; plain text becomes the
// final answer.
func (p *GeminiPlanner) Decide(ctx context.Context, transcript []Message, catalog []ToolSpec) (*Decision, error) {
	if len(transcript) == 0 {
		return nil, fmt.Errorf("transcript is empty, nothing to plan")
	}

	model := p.client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(plannerSystemInstruction)},
	}
	model.Tools = []*genai.Tool{{FunctionDeclarations: declarationsFor(catalog)}}

	history := historyContents(transcript)

	chatSession := model.StartChat()
	chatSession.History = history[:len(history)-1]

	last := history[len(history)-1]
	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini planning request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Println("Gemini response was empty or had no valid candidates/parts.")
		return &Decision{FinalAnswer: "I'm sorry, I couldn't generate a response at this time. Please try again."}, nil
	}

	decision := &Decision{}
	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			answer.WriteString(string(v))
		case genai.FunctionCall:
			decision.ToolCalls = append(decision.ToolCalls, ToolCall{
				ID:   uuid.NewString(),
				Name: v.Name,
				Args: v.Args,
			})
		default:
			log.Printf("Gemini response part was neither text nor function call: %T", part)
		}
	}
	decision.FinalAnswer = strings.TrimSpace(answer.String())

	if decision.FinalAnswer == "" && len(decision.ToolCalls) == 0 {
		return &Decision{FinalAnswer: "I received an empty response, please try rephrasing your question."}, nil
	}
	return decision, nil
}

// historyContents maps the transcript to Gemini contents. A run of
// consecutive tool observations answers the function calls of one model
// turn, so it must be folded into a single user-role content with one
// function-response part per call; the API rejects the responses when they
// arrive split across contents.
func historyContents(transcript []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for i := 0; i < len(transcript); i++ {
		msg := transcript[i]
		if msg.Role != RoleTool {
			contents = append(contents, toContent(msg))
			continue
		}
		parts := []genai.Part{functionResponsePart(msg.Observation)}
		for i+1 < len(transcript) && transcript[i+1].Role == RoleTool {
			i++
			parts = append(parts, functionResponsePart(transcript[i].Observation))
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: parts})
	}
	return contents
}

// toContent maps one user or assistant transcript entry to Gemini content.
func toContent(msg Message) *genai.Content {
	switch msg.Role {
	case RoleAssistant:
		var parts []genai.Part
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
		}
		return &genai.Content{Role: "model", Parts: parts}
	default:
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}}
	}
}

// functionResponsePart renders one observation as the function-response
// part answering its tool call.
func functionResponsePart(obs *Observation) genai.Part {
	response := map[string]any{"ok": obs.OK}
	if obs.OK {
		for k, v := range jsonifyPayload(obs.Payload) {
			response[k] = v
		}
		if obs.Message != "" {
			response["message"] = obs.Message
		}
	} else {
		response["error_kind"] = obs.ErrorKind
		response["error"] = obs.Message
	}
	return genai.FunctionResponse{Name: obs.ToolName, Response: response}
}

// jsonifyPayload round-trips a tool payload through encoding/json so the
// response map holds only JSON-basic values. Tool handlers return typed
// structs and slices; the SDK converts the response with structpb, which
// rejects anything that is not a plain map, slice, string, number, bool
// or nil.
func jsonifyPayload(payload map[string]any) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Tool payload is not JSON-serializable: %v", err)
		return map[string]any{"error": "tool result could not be serialized"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("Tool payload round-trip failed: %v", err)
		return map[string]any{"error": "tool result could not be serialized"}
	}
	return out
}

// declarationsFor converts the catalog to Gemini function declarations.
// Context-injected params are omitted: the planner neither sees nor
// supplies them.
func declarationsFor(catalog []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(catalog))
	for _, spec := range catalog {
		properties := make(map[string]*genai.Schema)
		var required []string
		for _, param := range spec.Params {
			if param.FromContext {
				continue
			}
			properties[param.Name] = &genai.Schema{
				Type:        schemaType(param.Type),
				Description: paramDescription(param),
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case TypeNumber:
		return genai.TypeNumber
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeObject:
		return genai.TypeObject
	default: // string and date both travel as strings
		return genai.TypeString
	}
}

func paramDescription(p Param) string {
	if p.Type == TypeDate {
		return strings.TrimSpace(p.Description + " Must be in YYYY-MM-DD format.")
	}
	return p.Description
}
