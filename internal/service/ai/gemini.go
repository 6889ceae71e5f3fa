package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/zhouzirui/mockview/backend/internal/config"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

const geminiMaxOutputTokens = 2048

// GeminiService generates interviewer turns with the Gemini API.
type GeminiService struct {
	client      *genai.Client
	model       string
	temperature *float32
	log         logger.Logger
}

// NewGeminiService creates the Gemini client.
func NewGeminiService(ctx context.Context, cfg config.GeminiConfig) (*GeminiService, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("gemini api key or model missing: %w", config.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	return &GeminiService{
		client:      client,
		model:       cfg.Model,
		temperature: temperature,
		log:         logger.Named("gemini"),
	}, nil
}

// Generate implements the interview Generator.
func (g *GeminiService) Generate(ctx context.Context, thread []interview.Message) (string, error) {
	system, contents := toGeminiContents(thread)
	if len(contents) == 0 {
		return "", errors.New("empty interview thread")
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:       g.temperature,
		MaxOutputTokens:   geminiMaxOutputTokens,
		SystemInstruction: system,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("no text content in response")
	}

	g.log.Debug(ctx, "generated reply", logger.Int("length", len(text)))
	return text, nil
}

// toGeminiContents moves system messages into the system instruction and maps the rest
// onto Gemini's user/model roles.
func toGeminiContents(thread []interview.Message) (*genai.Content, []*genai.Content) {
	var (
		system   *genai.Content
		contents = make([]*genai.Content, 0, len(thread))
	)
	for _, msg := range thread {
		switch msg.Role {
		case interview.RoleSystem:
			if system == nil {
				system = genai.NewContentFromText(msg.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(msg.Content))
			}
		case interview.RoleCandidate:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case interview.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}
	return system, contents
}
