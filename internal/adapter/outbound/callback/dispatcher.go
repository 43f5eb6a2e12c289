package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

// Config holds callback delivery configuration.
type Config struct {
	// EdgeFunctionBaseURL is the base URL internal functions are invoked
	// under; the approval's callback target names the function.
	EdgeFunctionBaseURL string
	// ServiceToken authenticates edge-function invocations. It is never sent
	// to external webhook targets.
	ServiceToken string
	Timeout      time.Duration
}

// Dispatcher implements outbound.CallbackSender over HTTPS. There is no
// retry and no queue: a failed delivery is the caller's to log, and the
// state transition it follows is never rolled back.
type Dispatcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

var _ outbound.CallbackSender = (*Dispatcher)(nil)

// notification is the uniform payload every callback target receives.
type notification struct {
	ApprovalID       string         `json:"approval_id"`
	ResourceType     string         `json:"resource_type"`
	ResourceID       string         `json:"resource_id"`
	ResourceName     string         `json:"resource_name"`
	Action           string         `json:"action"`
	Content          model.Document `json:"content"`
	OriginalContent  model.Document `json:"original_content"`
	CallbackMetadata model.Document `json:"callback_metadata"`
	ActionedAt       *time.Time     `json:"actioned_at"`
}

// Dispatch implements outbound.CallbackSender.
func (d *Dispatcher) Dispatch(ctx context.Context, approval model.Approval, outcome model.ApprovalStatus, content model.Document) error {
	switch approval.CallbackType {
	case "":
		return nil
	case model.CallbackWorkflow:
		// Reserved: workflow triggers are not delivered yet.
		d.logger.Info("workflow callback skipped",
			"approval_id", approval.ID,
			"target", approval.CallbackTarget,
		)
		return nil
	case model.CallbackEdgeFunction:
		url := strings.TrimRight(d.cfg.EdgeFunctionBaseURL, "/") + "/functions/v1/" + approval.CallbackTarget
		return d.post(ctx, url, d.cfg.ServiceToken, approval, outcome, content)
	case model.CallbackWebhook:
		return d.post(ctx, approval.CallbackTarget, "", approval, outcome, content)
	default:
		return fmt.Errorf("unknown callback type %q", approval.CallbackType)
	}
}

func (d *Dispatcher) post(ctx context.Context, url, bearer string, approval model.Approval, outcome model.ApprovalStatus, content model.Document) error {
	body, err := json.Marshal(notification{
		ApprovalID:       approval.ID,
		ResourceType:     string(approval.ResourceType),
		ResourceID:       approval.ResourceID,
		ResourceName:     approval.ResourceName,
		Action:           string(outcome),
		Content:          content,
		OriginalContent:  approval.OriginalContent,
		CallbackMetadata: approval.CallbackMetadata,
		ActionedAt:       approval.ActionedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback target returned %d", resp.StatusCode)
	}
	return nil
}
