package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileEmailSender appends one JSON line per message to a file. Used for local
// runs where no SMTP relay is reachable.
type FileEmailSender struct {
	mu       sync.Mutex
	filePath string
}

type fileEmailRecord struct {
	LoggedAt   time.Time `json:"logged_at"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	TemplateID string    `json:"template_id"`
	Raw        string    `json:"raw"`
}

// NewFileEmailSender creates the directory for filePath if needed.
func NewFileEmailSender(filePath string) (*FileEmailSender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}
	return &FileEmailSender{filePath: filePath}, nil
}

func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	line, err := json.Marshal(fileEmailRecord{
		LoggedAt:   time.Now().UTC(),
		To:         to,
		Subject:    subject,
		TemplateID: templateOf(rawMessage),
		Raw:        string(rawMessage),
	})
	if err != nil {
		return fmt.Errorf("failed to encode email log record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
