// Package suggest backs the storefront's pastry consultant: short
// creative cake ideas for an event, and an analysis of an uploaded
// inspiration photo. Both run through a chat model; the feature is off
// unless an API key is configured.
package suggest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned when no API key was configured.
var ErrDisabled = errors.New("suggestions are not configured")

const systemPrompt = "You are the head chef at a luxury boutique bakery specializing in eggless cakes."

// Service produces suggestions via a chat completion API.
type Service struct {
	client *openai.Client
	model  string
}

// New returns a service, or nil when apiKey is empty. A nil *Service is
// safe to call; its methods return ErrDisabled.
func New(apiKey, model string) *Service {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Service{client: openai.NewClient(apiKey), model: model}
}

// Enabled reports whether suggestions are configured.
func (s *Service) Enabled() bool {
	return s != nil
}

// CakeIdeas suggests three eggless cake concepts for the described event.
func (s *Service) CakeIdeas(ctx context.Context, event string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	if strings.TrimSpace(event) == "" {
		return "", errors.New("event description is empty")
	}
	prompt := fmt.Sprintf("Act as a premium pastry consultant for 'The Patisserie Lane'. "+
		"Suggest 3 creative cake ideas (eggless) based on this user event: %q. "+
		"Be professional, artistic, and mention specific flavors like Rasmalai, Belgian Chocolate, or Zesty Lemon. "+
		"Format as short bullet points.", event)
	return s.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

// AnalyzeInspiration describes how an inspiration photo could be
// recreated as an eggless bake. The image is passed inline as a data URL.
func (s *Service) AnalyzeInspiration(ctx context.Context, image []byte, mimeType string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	return s.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				{Type: openai.ChatMessagePartTypeText, Text: "Act as Adwita, a premium eggless pastry chef from Lavonne Academy. " +
					"Analyze this cake inspiration photo. Suggest how 'The Patisserie Lane' can recreate this as a 100% eggless version. " +
					"Mention flavor recommendations (like Rasmalai or Belgian Chocolate) and aesthetic details. Be encouraging and professional."},
			},
		},
	})
}

func (s *Service) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
