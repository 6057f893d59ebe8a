package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"loopremote/internal/models"
)

// PushDispatcher delivers commands through the push relay as a single
// network call. Trust is delegated to the signing key: there is no
// local secondary authentication step.
type PushDispatcher struct {
	settings   *models.Settings
	limiter    *BolusLimiter
	httpClient *http.Client
	now        func() time.Time
}

// NewPushDispatcher creates a push dispatcher
func NewPushDispatcher(settings *models.Settings, limiter *BolusLimiter) *PushDispatcher {
	return &PushDispatcher{
		settings: settings,
		limiter:  limiter,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type pushRequest struct {
	DeviceToken string `json:"deviceToken"`
	Command     string `json:"command"` // Signed claims payload
}

type pushResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Send signs the command and posts it to the relay
func (d *PushDispatcher) Send(cmd models.Command) (Outcome, error) {
	s := d.settings.Clone()
	if s.PushRelayURL == "" || s.PushDeviceToken == "" || s.PushKeyID == "" || s.PushSharedSecret == "" {
		return Outcome{}, ErrInvalidConfiguration
	}

	if err := d.limiter.Check(cmd); err != nil {
		return Outcome{}, err
	}

	wire, err := BuildWireString(cmd)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding command: %w", err)
	}

	signed, err := d.signCommand(s, cmd, wire)
	if err != nil {
		return Outcome{}, fmt.Errorf("signing command: %w", err)
	}

	body, err := json.Marshal(pushRequest{
		DeviceToken: s.PushDeviceToken,
		Command:     signed,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest("POST", s.PushRelayURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Outcome{}, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{}, ErrRateLimited
	case resp.StatusCode >= 500:
		return Outcome{}, fmt.Errorf("%w: relay returned %d", ErrNetwork, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Outcome{}, fmt.Errorf("%w: relay returned %d: %s", ErrInvalidResponse, resp.StatusCode, string(respBody))
	}

	var parsed pushResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if parsed.Status != "ok" {
		return Outcome{}, fmt.Errorf("%w: relay reported %q: %s", ErrInvalidResponse, parsed.Status, parsed.Error)
	}

	if err := d.limiter.Commit(cmd); err != nil {
		fmt.Printf("Error persisting bolus rate-limit clock: %v\n", err)
	}

	return Outcome{
		Transport:   models.TransportPush,
		Description: wire,
		SentAt:      d.now(),
	}, nil
}

// signCommand builds the signed claims payload for the relay. The code
// is time-boxed: relays reject tokens older than the exp window.
func (d *PushDispatcher) signCommand(s *models.Settings, cmd models.Command, wire string) (string, error) {
	now := d.now()
	claims := jwt.MapClaims{
		"jti":    uuid.NewString(),
		"sub":    s.PushDeviceToken,
		"iat":    now.Unix(),
		"exp":    now.Add(5 * time.Minute).Unix(),
		"kind":   string(cmd.Kind),
		"cmd":    wire,
		"amount": cmd.Amount,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.PushKeyID

	return token.SignedString([]byte(s.PushSharedSecret))
}
