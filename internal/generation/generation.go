// Package generation runs the tool-call negotiation loop against the
// Anthropic Messages API: offer tool definitions, execute the calls the
// model requests, feed results back, and repeat for a bounded number of
// rounds until the model produces a final answer.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lectern/lectern/internal/tools"
)

var tracer = otel.Tracer("github.com/lectern/lectern/internal/generation")

// MaxToolRounds is the hard ceiling on tool rounds per query. Two rounds
// cover the common "look up the course, then search within it" chain while
// bounding latency and cost; the last round's request withholds tool
// definitions so the model is forced toward closure.
const MaxToolRounds = 2

// maxAnswerTokens bounds the model's output length per call.
const maxAnswerTokens = 800

const stopReasonToolUse = "tool_use"

// noResponseFallback is returned when the final model turn carries no
// content at all.
const noResponseFallback = "No response generated"

// systemPrompt instructs the model on tool selection and answer style.
// The embedded protocol mirrors the loop: up to two tool rounds, then a
// direct answer.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to specialized tools for course information.

Tool Usage:
- **Content search tool**: use for questions about specific course content or detailed educational materials
- **Course outline tool**: use for questions about course structure, lesson lists, or course overviews; it returns the course title, course link, and the complete lesson list
- **Sequential tool use**: you may use tools across up to two rounds to gather what you need, for example an outline lookup followed by a content search
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: answer from existing knowledge without tools
- **Course-specific questions**: use the appropriate tool first, then answer
- **No meta-commentary**: provide direct answers only; no reasoning process, tool explanations, or question-type analysis

All responses must be:
1. **Brief and focused** - get to the point quickly
2. **Educational** - maintain instructional value
3. **Clear** - use accessible language
4. **Example-supported** - include relevant examples when they aid understanding

Provide only the direct answer to what was asked.`

// Messenger is the transport to the reasoning model. The production
// implementation wraps the Anthropic SDK client; tests script responses.
type Messenger interface {
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// ToolExecutor dispatches a tool call requested by the model and returns
// the result text. *tools.Registry satisfies this.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) string
}

// Engine drives answer generation for one query at a time. It keeps no
// state between calls; everything a query needs is passed into Generate.
type Engine struct {
	client Messenger
	model  string
	logger *slog.Logger
}

// NewEngine creates an Engine talking to the given model.
func NewEngine(client Messenger, model string, logger *slog.Logger) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, model: model, logger: logger}, nil
}

// Generate answers one query. history, when non-empty, is prior
// conversation rendered as text and is appended to the system prompt. defs
// are the tool definitions offered to the model; executor runs the calls
// the model requests. With no executor, a tool-use response degrades to
// whatever text it carries.
//
// The returned error is non-nil only when the first model call fails:
// at that point no tool context exists to recover into. Once the tool
// loop has started, every failure becomes answer text instead.
func (e *Engine) Generate(ctx context.Context, query, history string, defs []tools.Definition, executor ToolExecutor) (string, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   maxAnswerTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(query))},
	}
	if len(defs) > 0 {
		params.Tools = convertDefinitions(defs)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	resp, err := e.client.CreateMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	if string(resp.StopReason) == stopReasonToolUse && executor != nil {
		return e.runToolRounds(ctx, params, resp, executor), nil
	}
	return extractText(resp), nil
}

// runToolRounds executes the bounded negotiation loop. resp is the model
// turn that requested tools; params still carries the original tool
// definitions and the accumulated message log.
func (e *Engine) runToolRounds(ctx context.Context, params anthropic.MessageNewParams, resp *anthropic.Message, executor ToolExecutor) string {
	for round := 1; ; round++ {
		// Rounds are sibling spans under the caller's query span, not
		// nested in each other.
		roundCtx, span := tracer.Start(ctx, "generation.round",
			trace.WithAttributes(attribute.Int("generation.round", round)))

		params.Messages = append(params.Messages, assistantTurn(resp))

		results := e.executeToolCalls(roundCtx, resp, executor)
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRoleUser,
			Content: results,
		})
		span.SetAttributes(attribute.Int("generation.tool_calls", len(results)))

		// The last permitted call goes out without tool definitions,
		// forcing the model to answer.
		finalRound := round >= MaxToolRounds
		if finalRound {
			params.Tools = nil
			params.ToolChoice = anthropic.ToolChoiceUnionParam{}
		}

		next, err := e.client.CreateMessage(roundCtx, params)
		if err != nil {
			e.logger.Warn("model call failed mid-loop", "round", round, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "model call failed")
			span.End()
			return fmt.Sprintf("Error in tool execution round %d: %v", round, err)
		}
		resp = next
		span.End()

		if string(resp.StopReason) != stopReasonToolUse || finalRound {
			return extractText(resp)
		}
	}
}

// executeToolCalls runs every tool_use block of a model turn in emission
// order and pairs each with a tool_result block. A fault in one call is
// contained to that call's result; the query always continues.
func (e *Engine) executeToolCalls(ctx context.Context, resp *anthropic.Message, executor ToolExecutor) []anthropic.ContentBlockParamUnion {
	var results []anthropic.ContentBlockParamUnion
	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		content, isError := e.executeOne(ctx, executor, block.Name, block.Input)
		results = append(results, anthropic.NewToolResultBlock(block.ID, content, isError))
	}
	return results
}

// executeOne dispatches a single call, converting malformed arguments and
// panics into a model-readable error string.
func (e *Engine) executeOne(ctx context.Context, executor ToolExecutor, name string, input json.RawMessage) (content string, isError bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool execution panicked", "tool", name, "panic", r)
			content = fmt.Sprintf("Tool execution error: %v", r)
			isError = true
		}
	}()

	args := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return fmt.Sprintf("Tool execution error: %v", err), true
		}
	}

	e.logger.Debug("executing tool", "tool", name)
	return executor.Execute(ctx, name, args), false
}

// assistantTurn converts a model response into the assistant message
// appended to the running log. Empty text blocks are dropped; the API
// rejects them.
func assistantTurn(resp *anthropic.Message) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(resp.Content))
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(block.Text))
			}
		case "tool_use":
			var input any
			if err := json.Unmarshal(block.Input, &input); err != nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(block.ID, input, block.Name))
		}
	}
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks}
}

// convertDefinitions renders tool definitions as Anthropic tool params.
func convertDefinitions(defs []tools.Definition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.InputSchema["properties"],
					Required:   requiredParams(def.InputSchema),
				},
			},
		}
	}
	return result
}

// requiredParams reads the required-parameter list from a definition
// schema, accepting both []string and the []any form JSON decoding yields.
func requiredParams(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

// extractText returns the first text block of a response, or the fixed
// fallback when the response has no text at all.
func extractText(resp *anthropic.Message) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return noResponseFallback
}
