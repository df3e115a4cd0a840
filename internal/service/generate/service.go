package generate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/mirrorfield/dust-machines/backend/internal/config"
	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

// Per-artifact output budgets. A mission carries a title, description and
// category; the oracle answers in a sentence or two; the temple returns two
// short fields. The health probe only needs one phrase back.
const (
	missionMaxTokens = 300
	oracleMaxTokens  = 150
	templeMaxTokens  = 200
	healthMaxTokens  = 50
)

// Service translates a structured machine request into exactly one model
// call and returns a typed result. It is stateless: oracle history arrives
// as an argument, never as server-side session state. Without a configured
// model it serves the offline deck instead.
type Service struct {
	chatModel   model.ChatModel
	promptChain compose.Runnable[map[string]any, *schema.Message]
	oracleChain compose.Runnable[map[string]any, *schema.Message]
	timeout     time.Duration
	rng         *rand.Rand
}

// NewService builds the gateway from configuration. Missing credentials are
// not an error; the service comes up in fallback mode.
func NewService(ctx context.Context, aiCfg config.AIConfig, genCfg config.GenerationConfig) (*Service, error) {
	var chatModel model.ChatModel
	if aiCfg.Enabled() {
		m, err := aiCfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		chatModel = m
	}
	return NewServiceWithModel(ctx, chatModel, genCfg.Timeout)
}

// NewServiceWithModel wires the gateway around an existing model instance.
// A nil model yields a fallback-only service.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*Service, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	svc := &Service{
		chatModel: chatModel,
		timeout:   timeout,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if chatModel == nil {
		return svc, nil
	}

	// Dispenser and temple send a single self-contained instruction.
	plainTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)
	plainChain := compose.NewChain[map[string]any, *schema.Message]()
	plainChain.AppendChatTemplate(plainTemplate)
	plainChain.AppendChatModel(chatModel)

	promptRunnable, err := plainChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile prompt chain: %w", err)
	}

	// The oracle carries the whole conversation as context.
	oracleTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)
	oracleChain := compose.NewChain[map[string]any, *schema.Message]()
	oracleChain.AppendChatTemplate(oracleTemplate)
	oracleChain.AppendChatModel(chatModel)

	oracleRunnable, err := oracleChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile oracle chain: %w", err)
	}

	svc.promptChain = promptRunnable
	svc.oracleChain = oracleRunnable
	return svc, nil
}

// Enabled reports whether an upstream model is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.chatModel != nil
}

// missionPayload is the shape the dispenser prompt asks the model to emit.
type missionPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// transmutationPayload is the shape the temple prompt asks the model to emit.
type transmutationPayload struct {
	Insight string `json:"insight"`
	Wisdom  string `json:"wisdom"`
}

// DispenseMission generates one mission for the given aspiration.
func (s *Service) DispenseMission(ctx context.Context, aspiration string, tuning machine.Tuning) (machine.Mission, error) {
	if !s.Enabled() {
		return fallbackMission(s.rng), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.promptChain.Invoke(ctx, map[string]any{
		"prompt": buildMissionPrompt(aspiration, tuning),
	}, compose.WithChatModelOption(model.WithMaxTokens(missionMaxTokens)))
	if err != nil {
		return machine.Mission{}, fmt.Errorf("mission generation failed: %w", err)
	}

	var payload missionPayload
	if err := decodeObject(reply.Content, &payload); err != nil {
		return machine.Mission{}, fmt.Errorf("mission reply malformed: %w", err)
	}

	category := machine.Category(strings.TrimSpace(payload.Category))
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Description) == "" {
		return machine.Mission{}, fmt.Errorf("mission reply missing required field")
	}
	if !category.Valid() {
		return machine.Mission{}, fmt.Errorf("mission reply has unknown category %q", payload.Category)
	}

	mission := machine.Mission{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		Category:    category,
		Color:       category.Color(),
	}
	log.Printf("[generate] dispensed mission id=%s category=%s", mission.ID, mission.Category)
	return mission, nil
}

// Reflect produces the oracle's next turn given the conversation so far.
func (s *Service) Reflect(ctx context.Context, message string, history []machine.ChatTurn) (string, error) {
	if !s.Enabled() {
		return fallbackReflection(s.rng), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.oracleChain.Invoke(ctx, map[string]any{
		"system":  oracleSystemPrompt,
		"history": oracleHistoryMessages(history),
		"query":   message,
	}, compose.WithChatModelOption(model.WithMaxTokens(oracleMaxTokens)))
	if err != nil {
		return "", fmt.Errorf("oracle generation failed: %w", err)
	}

	text := strings.TrimSpace(reply.Content)
	if text == "" {
		return "", fmt.Errorf("oracle reply empty")
	}
	return text, nil
}

// Transmute reframes the burden into insight and wisdom.
func (s *Service) Transmute(ctx context.Context, burden string) (machine.Transmutation, error) {
	if !s.Enabled() {
		return fallbackTransmutation(burden), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.promptChain.Invoke(ctx, map[string]any{
		"prompt": buildTemplePrompt(burden),
	}, compose.WithChatModelOption(model.WithMaxTokens(templeMaxTokens)))
	if err != nil {
		return machine.Transmutation{}, fmt.Errorf("transmutation failed: %w", err)
	}

	var payload transmutationPayload
	if err := decodeObject(reply.Content, &payload); err != nil {
		return machine.Transmutation{}, fmt.Errorf("transmutation reply malformed: %w", err)
	}
	if strings.TrimSpace(payload.Insight) == "" || strings.TrimSpace(payload.Wisdom) == "" {
		return machine.Transmutation{}, fmt.Errorf("transmutation reply missing required field")
	}

	return machine.Transmutation{
		Original: burden,
		Insight:  strings.TrimSpace(payload.Insight),
		Wisdom:   strings.TrimSpace(payload.Wisdom),
	}, nil
}

// Health makes one tiny upstream call and returns the reply text, so the
// probe proves the whole path rather than just the process being alive.
func (s *Service) Health(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("generation model not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage("Say 'Claude is connected!'"),
	}, model.WithMaxTokens(healthMaxTokens))
	if err != nil {
		return "", fmt.Errorf("health probe failed: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}

// oracleHistoryMessages maps stored turns onto model roles.
func oracleHistoryMessages(history []machine.ChatTurn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}
	messages := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case machine.RoleOracle:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		case machine.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	return messages
}
