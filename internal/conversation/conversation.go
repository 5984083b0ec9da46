// Package conversation holds the dashboard-side per-agent message logs.
// Each agent function owns an ordered log of user and agent turns with
// per-message delivery status.
package conversation

import (
	"fmt"
	"sync"
	"time"

	"umbra.legal/relay/common/id"
	"umbra.legal/relay/internal/catalog"
	"umbra.legal/relay/internal/model"
)

const welcomeTemplate = `¡Hola! Soy el agente especializado en "%s". Estoy aquí para ayudarte con esta funcionalidad específica. ¿En qué puedo asistirte?`

// ApologyText is inserted in place of an agent reply when a send fails.
const ApologyText = "Lo siento, ocurrió un error al enviar tu mensaje. Por favor intenta nuevamente."

// Store is the typed mapping from function id to its ordered message log.
// The UI is effectively single-writer, but the poller callback runs on its
// own goroutine, so mutation is guarded anyway.
type Store struct {
	mu   sync.Mutex
	logs map[catalog.FunctionID][]model.Message
}

func NewStore() *Store {
	return &Store{logs: make(map[catalog.FunctionID][]model.Message)}
}

// AddMessage appends a message to the function's log, generating a message id
// if the caller didn't supply one. Returns the message id.
func (s *Store) AddMessage(functionID catalog.FunctionID, msg model.Message) string {
	if msg.MessageID == "" {
		msg.MessageID = id.NewMessageID("msg")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[functionID] = append(s.logs[functionID], msg)
	return msg.MessageID
}

// UpdateStatus transitions the status of the matching message in place.
// Returns false if no message with that id exists in the function's log.
func (s *Store) UpdateStatus(functionID catalog.FunctionID, messageID string, status model.MessageStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(functionID, messageID, status)
}

func (s *Store) updateStatusLocked(functionID catalog.FunctionID, messageID string, status model.MessageStatus) bool {
	log := s.logs[functionID]
	for i := range log {
		if log[i].MessageID == messageID {
			log[i].Status = status
			return true
		}
	}
	return false
}

// AddAgentResponse appends a new agent turn and marks the originating user
// message (identified by inReplyTo) as delivered. The reply is a new turn
// with its own id; the dual effect closes out the request it answers.
func (s *Store) AddAgentResponse(functionID catalog.FunctionID, inReplyTo, text string, metadata *model.ResponseMetadata) string {
	agentMsg := model.Message{
		Type:      model.MessageTypeAgent,
		Text:      text,
		Timestamp: time.Now(),
		MessageID: id.NewMessageID("agent"),
		Status:    model.StatusDelivered,
		Metadata:  metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[functionID] = append(s.logs[functionID], agentMsg)
	s.updateStatusLocked(functionID, inReplyTo, model.StatusDelivered)
	return agentMsg.MessageID
}

// InitializeAgent seeds a welcome message for a function. Idempotent: an
// already opened conversation is left untouched.
func (s *Store) InitializeAgent(functionID catalog.FunctionID, functionName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.logs[functionID]) > 0 {
		return
	}
	s.logs[functionID] = []model.Message{{
		Type:      model.MessageTypeAgent,
		Text:      fmt.Sprintf(welcomeTemplate, functionName),
		Timestamp: time.Now(),
		MessageID: fmt.Sprintf("welcome_%s_%d", functionID, time.Now().UnixMilli()),
		Status:    model.StatusDelivered,
	}}
}

// Messages returns a copy of the function's ordered log.
func (s *Store) Messages(functionID catalog.FunctionID) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[functionID]
	out := make([]model.Message, len(log))
	copy(out, log)
	return out
}

// Clear empties one function's log.
func (s *Store) Clear(functionID catalog.FunctionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, functionID)
}

// ClearAll empties every log.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[catalog.FunctionID][]model.Message)
}
