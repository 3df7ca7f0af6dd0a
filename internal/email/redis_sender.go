package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
)

// MockEmailTTL is how long a captured email stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key a captured email is stored under.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", to, templateID)
}

// RedisSender implements the Sender interface by storing emails in Redis,
// where end-to-end tests read them back through the service API.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

// templateOf reads the template header from a raw message.
func templateOf(rawMessage []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(rawMessage))
	if err != nil {
		return "unknown"
	}
	if id := strings.TrimSpace(msg.Header.Get(TemplateHeader)); id != "" {
		return id
	}
	return "unknown"
}

// Send stores the email in Redis, keyed by the first recipient and the template.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := templateOf(rawMessage)
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":          strings.Join(to, ", "),
		"from":        s.cfg.SmtpFromAddress,
		"subject":     subject,
		"body":        string(rawMessage),
		"sent_at":     time.Now().UTC().Format(time.RFC3339Nano),
		"template_id": templateID,
	}
	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, templateID)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	zap.L().Debug("Mock email stored in Redis", zap.String("key", key), zap.String("subject", subject))
	return nil
}
