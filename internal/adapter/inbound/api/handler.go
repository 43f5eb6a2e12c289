package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/inbound"
	"github.com/sunbeamhq/sunbeam-bot/pkg/apierror"
)

// Handler serves the management API upstream collaborators use to register
// approvals and read their state. Bearer auth is applied by the server's
// route setup.
type Handler struct {
	intake inbound.ApprovalIntakePort
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(intake inbound.ApprovalIntakePort, logger *slog.Logger) *Handler {
	return &Handler{intake: intake, logger: logger}
}

// createRequest is the POST /api/approvals body.
type createRequest struct {
	OrgID            string         `json:"org_id"`
	UserID           string         `json:"user_id"`
	CreatedBy        string         `json:"created_by"`
	ResourceType     string         `json:"resource_type"`
	ResourceID       string         `json:"resource_id"`
	ResourceName     string         `json:"resource_name"`
	ChannelID        string         `json:"channel_id"`
	ThreadTS         string         `json:"thread_ts"`
	Content          model.Document `json:"content"`
	CallbackType     string         `json:"callback_type"`
	CallbackTarget   string         `json:"callback_target"`
	CallbackMetadata model.Document `json:"callback_metadata"`
	TTLSeconds       int            `json:"ttl_seconds"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/approvals")

	switch {
	case path == "" || path == "/":
		if r.Method != http.MethodPost {
			apierror.Write(w, apierror.New(http.StatusMethodNotAllowed, "method not allowed"))
			return
		}
		h.create(w, r)
	case strings.HasPrefix(path, "/"):
		if r.Method != http.MethodGet {
			apierror.Write(w, apierror.New(http.StatusMethodNotAllowed, "method not allowed"))
			return
		}
		h.get(w, r, strings.TrimPrefix(path, "/"))
	default:
		apierror.Write(w, apierror.NotFound("route"))
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	if req.OrgID == "" || req.ResourceType == "" || req.ResourceID == "" {
		apierror.Write(w, apierror.BadRequest("org_id, resource_type and resource_id are required"))
		return
	}
	if !model.ValidResourceType(model.ResourceType(req.ResourceType)) {
		apierror.Write(w, apierror.BadRequest("unknown resource_type"))
		return
	}

	approval, err := h.intake.Create(r.Context(), inbound.CreateApprovalRequest{
		OrgID:            req.OrgID,
		UserID:           req.UserID,
		CreatedBy:        req.CreatedBy,
		ResourceType:     model.ResourceType(req.ResourceType),
		ResourceID:       req.ResourceID,
		ResourceName:     req.ResourceName,
		ChannelID:        req.ChannelID,
		ThreadTS:         req.ThreadTS,
		Content:          req.Content,
		CallbackType:     model.CallbackType(req.CallbackType),
		CallbackTarget:   req.CallbackTarget,
		CallbackMetadata: req.CallbackMetadata,
		TTL:              time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.logger.Error("creating approval failed", "error", err)
		apierror.Write(w, apierror.Internal("failed to create approval"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(approval)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, id string) {
	approval, err := h.intake.Get(r.Context(), id)
	if errors.Is(err, model.ErrApprovalNotFound) {
		apierror.Write(w, apierror.NotFound("approval"))
		return
	}
	if err != nil {
		h.logger.Error("fetching approval failed", "approval_id", id, "error", err)
		apierror.Write(w, apierror.Internal("failed to fetch approval"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(approval)
}
