package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
)

const (
	ChatGreeting   = "Hello! I am EnergyBoss. I can help you understand your household energy usage. Ask me anything!"
	ChatErrorReply = "I encountered an error while processing your request. Please make sure the backend is running!"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrChatBusy      = errors.New("a question is already being answered")
)

type ChatView struct {
	SessionID string               `json:"session_id"`
	Sending   bool                 `json:"sending"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// ChatSession is one conversation with the assistant. A backend failure
// becomes an assistant message rather than an error.
type ChatSession struct {
	api ChatAPI
	id  string

	mu       sync.Mutex
	messages []domain.ChatMessage
	sending  bool

	// gen changes on Clear so an answer to a cleared question is dropped.
	gen uint64
}

func NewChatSession(client ChatAPI) *ChatSession {
	return &ChatSession{
		api:      client,
		id:       uuid.NewString(),
		messages: greeting(),
	}
}

func greeting() []domain.ChatMessage {
	return []domain.ChatMessage{{Role: domain.RoleAssistant, Content: ChatGreeting}}
}

func (s *ChatSession) SessionID() string { return s.id }

// Send asks question and waits for the reply. Blank questions and questions
// sent while another is pending are refused without touching the history.
func (s *ChatSession) Send(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrChatBusy
	}
	s.sending = true
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Content: question})
	gen := s.gen
	s.mu.Unlock()

	reply := ChatErrorReply
	ans, err := s.api.Chat(ctx, question, s.id)
	metrics.RecordPollCycle("chat", err)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("chat query failed")
	} else {
		reply = ans.Answer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	if s.gen != gen {
		return nil
	}
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return nil
}

// Clear drops the conversation and starts over from the greeting.
func (s *ChatSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.messages = greeting()
}

func (s *ChatSession) View() ChatView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChatView{
		SessionID: s.id,
		Sending:   s.sending,
		Messages:  append([]domain.ChatMessage(nil), s.messages...),
	}
}
