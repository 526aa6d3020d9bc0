// Package assistant stores per-ticker prompts and runs them through a
// text-generation client, keeping the last answer alongside the prompt.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

// Service implements the AssistantService interface.
type Service struct {
	store  interfaces.AssistantStateStore
	client interfaces.AssistantClient
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates the assistant service. client may be nil when no API key
// is configured; Ask then fails but saved prompts still persist.
func NewService(store interfaces.AssistantStateStore, client interfaces.AssistantClient, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// SavePrompt stores the prompt for a ticker without generating an answer.
// The previous answer, if any, is kept.
func (s *Service) SavePrompt(ctx context.Context, ticker, prompt string) error {
	key := models.NormalizeTicker(ticker)
	if !s.store.GetPortfolio().HasTicker(key) {
		return fmt.Errorf("%s: %w", key, models.ErrNotFound)
	}

	entry, _ := s.State(key)
	entry.Prompt = prompt
	return s.store.SetAssistantEntry(ctx, key, entry)
}

// State returns the stored prompt/answer for a ticker.
func (s *Service) State(ticker string) (models.AssistantEntry, bool) {
	key := models.NormalizeTicker(ticker)
	state := s.store.GetPortfolio().AssistantState
	if state == nil {
		return models.AssistantEntry{}, false
	}
	entry, ok := state[key]
	return entry, ok
}

// Ask saves the prompt, generates an answer with portfolio context prepended,
// stores the answer, and returns it. The prompt survives a generation
// failure so it can be retried.
func (s *Service) Ask(ctx context.Context, ticker, prompt string) (string, error) {
	key := models.NormalizeTicker(ticker)

	if err := s.SavePrompt(ctx, key, prompt); err != nil {
		return "", err
	}
	if s.client == nil {
		return "", fmt.Errorf("no assistant client configured")
	}

	full := s.buildPrompt(key, prompt)
	answer, err := s.client.Generate(ctx, full)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", key).Msg("Assistant generation failed")
		return "", fmt.Errorf("failed to generate answer for %s: %w", key, err)
	}

	entry, _ := s.State(key)
	entry.LastAnswer = answer
	entry.UpdatedAt = s.now()
	if err := s.store.SetAssistantEntry(ctx, key, entry); err != nil {
		return "", err
	}

	s.logger.Info().Str("ticker", key).Int("answer_len", len(answer)).Msg("Assistant answer stored")
	return answer, nil
}

// buildPrompt prefixes the user's question with portfolio context: the
// strategy description and the holding's current numbers.
func (s *Service) buildPrompt(ticker, prompt string) string {
	p := s.store.GetPortfolio()

	var sb strings.Builder
	if p.Description != "" {
		sb.WriteString("Portfolio strategy: ")
		sb.WriteString(p.Description)
		sb.WriteString("\n\n")
	}

	if h, _ := p.FindHolding(ticker); h != nil {
		name := h.CompanyName
		if name == "" {
			name = h.Ticker
		}
		sb.WriteString(fmt.Sprintf("Holding: %s (%s), %s shares", name, h.Ticker, h.Shares.String()))
		if h.PurchasePrice != nil {
			sb.WriteString(fmt.Sprintf(", bought at $%s", h.PurchasePrice.StringFixed(2)))
		}
		if h.CurrentPrice != nil {
			sb.WriteString(fmt.Sprintf(", now $%s", h.CurrentPrice.StringFixed(2)))
		}
		if h.PurchaseDate != "" {
			sb.WriteString(fmt.Sprintf(", held since %s", h.PurchaseDate))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(prompt)
	return sb.String()
}

// Ensure Service implements AssistantService
var _ interfaces.AssistantService = (*Service)(nil)
