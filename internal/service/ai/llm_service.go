// Package ai adapts language model providers to the interview Generator contract and
// scores finished interviews.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/mockview/backend/internal/config"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

// Service runs interview threads through an eino chain over a chat model.
type Service struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	streaming bool
	log       logger.Logger
}

// NewService builds the Ark-backed service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.StreamResponse)
}

// NewServiceWithModel builds the service over any chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, streaming bool) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile interview chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		streaming: streaming,
		log:       logger.Named("ai"),
	}, nil
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.streaming
}

// ChatModel returns the underlying model.
func (s *Service) ChatModel() model.BaseChatModel {
	return s.chatModel
}

// Generate returns the interviewer's next utterance for thread.
func (s *Service) Generate(ctx context.Context, thread []interview.Message) (string, error) {
	input, err := buildChainInput(thread)
	if err != nil {
		return "", err
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run interview chain: %w", err)
	}
	if response == nil {
		return "", errors.New("interview chain returned no message")
	}

	s.log.Debug(ctx, "generated reply", logger.Int("length", len(response.Content)))
	return response.Content, nil
}

// GenerateStream streams chunks to onDelta when streaming is enabled; otherwise it falls
// back to a single Generate call delivered as one chunk.
func (s *Service) GenerateStream(ctx context.Context, thread []interview.Message, onDelta func(string)) (string, error) {
	if !s.streaming {
		reply, err := s.Generate(ctx, thread)
		if err == nil && reply != "" {
			onDelta(reply)
		}
		return reply, err
	}

	input, err := buildChainInput(thread)
	if err != nil {
		return "", err
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to stream interview chain output: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", errors.New("interview chain streamed no content")
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// buildChainInput splits the thread into the system seed, prior turns and the newest
// candidate utterance.
func buildChainInput(thread []interview.Message) (map[string]any, error) {
	if len(thread) == 0 {
		return nil, errors.New("empty interview thread")
	}
	last := thread[len(thread)-1]
	if last.Role != interview.RoleCandidate {
		return nil, fmt.Errorf("thread must end with a candidate message, got %s", last.Role)
	}

	var system []string
	history := make([]*schema.Message, 0, len(thread))
	for _, msg := range thread[:len(thread)-1] {
		switch msg.Role {
		case interview.RoleSystem:
			system = append(system, msg.Content)
		case interview.RoleCandidate:
			history = append(history, schema.UserMessage(msg.Content))
		case interview.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return map[string]any{
		"system":  strings.Join(system, "\n\n"),
		"history": history,
		"query":   last.Content,
	}, nil
}
