package notify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/sessiond/termsess/internal/session"
)

const webPushConfigDir = ".config/termsess"
const vapidFile = "vapid.json"

// WebPushSink delivers a session-completed push message to every
// subscribed browser endpoint. Adapted from the teacher's
// internal/notify Manager: same VAPID key management, retargeted from
// "tmux session exited" to "terminal session completed" and folded into
// the Sink interface so it composes with SlackSink under one
// notify.Manager.
type WebPushSink struct {
	mu            sync.Mutex
	logger        *slog.Logger
	vapidPrivate  string
	vapidPublic   string
	subscriptions []*webpush.Subscription
}

type vapidKeys struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

func NewWebPushSink(logger *slog.Logger) (*WebPushSink, error) {
	s := &WebPushSink{
		logger:        logger,
		subscriptions: make([]*webpush.Subscription, 0),
	}
	if err := s.loadOrGenerateVAPID(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WebPushSink) VAPIDPublicKey() string {
	return s.vapidPublic
}

// Subscribe registers a browser push endpoint, deduped by endpoint URL.
func (s *WebPushSink) Subscribe(sub *webpush.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subscriptions {
		if existing.Endpoint == sub.Endpoint {
			return
		}
	}
	s.subscriptions = append(s.subscriptions, sub)

	ep := sub.Endpoint
	if len(ep) > 50 {
		ep = ep[:50] + "..."
	}
	s.logger.Info("push subscription added", "endpoint", ep)
}

func (s *WebPushSink) Unsubscribe(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscriptions {
		if sub.Endpoint == endpoint {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			return
		}
	}
}

func (s *WebPushSink) Notify(cs *session.CompletedSession) error {
	payload, err := json.Marshal(map[string]any{
		"type":     "session_completed",
		"pid":      cs.Pid,
		"command":  cs.Command,
		"exitCode": cs.ExitCode,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	subs := make([]*webpush.Subscription, len(s.subscriptions))
	copy(subs, s.subscriptions)
	s.mu.Unlock()

	var lastErr error
	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
			VAPIDPublicKey:  s.vapidPublic,
			VAPIDPrivateKey: s.vapidPrivate,
			Subscriber:      "mailto:termsess@localhost",
		})
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
	}
	return lastErr
}

func (s *WebPushSink) loadOrGenerateVAPID() error {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, webPushConfigDir)
	path := filepath.Join(dir, vapidFile)

	if data, err := os.ReadFile(path); err == nil {
		var keys vapidKeys
		if err := json.Unmarshal(data, &keys); err == nil && keys.PrivateKey != "" {
			s.vapidPrivate = keys.PrivateKey
			s.vapidPublic = keys.PublicKey
			s.logger.Info("loaded VAPID keys")
			return nil
		}
	}

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate VAPID key: %w", err)
	}

	privBytes, err := x509.MarshalECPrivateKey(privKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), privKey.PublicKey.X, privKey.PublicKey.Y)

	s.vapidPrivate = base64.RawURLEncoding.EncodeToString(privBytes)
	s.vapidPublic = base64.RawURLEncoding.EncodeToString(pubBytes)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	keys := vapidKeys{PrivateKey: s.vapidPrivate, PublicKey: s.vapidPublic}
	data, _ := json.MarshalIndent(keys, "", "  ")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save VAPID keys: %w", err)
	}

	s.logger.Info("generated new VAPID keys")
	return nil
}
