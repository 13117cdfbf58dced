package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/protexis/ogx-gateway/internal/domain/protocol"
	"github.com/protexis/ogx-gateway/internal/domain/queue"
	"github.com/protexis/ogx-gateway/internal/domain/validation"
	"github.com/protexis/ogx-gateway/pkg/ogx"
)

// RejectionError reports a submission rejected before enqueue, naming
// the pipeline stage that rejected it and its diagnostics.
type RejectionError struct {
	Stage  string
	Errors []string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("submission rejected at %s: %s", e.Stage, strings.Join(e.Errors, "; "))
}

// SubmitRequest is one inbound submission.
type SubmitRequest struct {
	// Raw is the submission body: an object carrying Network,
	// Transport, optional DelayedSendOptions, DestinationID and the
	// Message to deliver.
	Raw []byte
	// Direction is the message direction, FORWARD unless stated.
	Direction validation.Direction
	// SubmittedBy names the authenticated API key, empty when the
	// submit API runs open.
	SubmittedBy string
}

// SubmitResult is the outcome of an accepted submission.
type SubmitResult struct {
	// ID is the gateway-assigned submission ID.
	ID string
	// Duplicate is true when the payload matched a submission already
	// in flight; ID then names the original.
	Duplicate bool
}

// SubmissionService runs the submission pipeline: protocol gates,
// message validation, duplicate detection, and enqueue for delivery.
type SubmissionService struct {
	network   *protocol.NetworkValidator
	transport *protocol.TransportValidator
	size      *protocol.SizeValidator
	messages  *validation.MessageValidator
	store     queue.Store
	stats     *StatsService
	logger    *slog.Logger
}

// NewSubmissionService creates a SubmissionService. sizeLimit bounds
// the serialized message size; non-positive means the OGx default.
func NewSubmissionService(store queue.Store, stats *StatsService, sizeLimit int, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		network:   protocol.NewNetworkValidator(),
		transport: protocol.NewTransportValidator(),
		size:      protocol.NewSizeValidator(sizeLimit),
		messages:  validation.NewMessageValidator(),
		store:     store,
		stats:     stats,
		logger:    logger,
	}
}

// Submit runs the full pipeline on one submission. Invalid submissions
// return a *RejectionError; valid ones are enqueued and acknowledged
// with a submission ID.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	direction := req.Direction
	if direction == "" {
		direction = validation.DirectionForward
	}
	vctx := validation.NewContext(direction)

	tree, err := ogx.DecodeTree(req.Raw)
	if err != nil {
		return nil, s.reject("format", err.Error())
	}

	// Protocol gates run first and accumulate independent errors.
	if res := s.network.Validate(asAny(tree), vctx); !res.Valid {
		return nil, s.reject("network", res.Errors...)
	}
	if res := s.transport.Validate(asAny(tree), vctx); !res.Valid {
		return nil, s.reject("transport", res.Errors...)
	}

	destination, _ := tree["DestinationID"].(string)
	if destination == "" {
		return nil, s.reject("format", "Missing destination ID")
	}

	message, ok := tree["Message"]
	if !ok || message == nil {
		return nil, s.reject("format", "Missing message payload")
	}

	if err := s.size.CheckSize(message); err != nil {
		return nil, s.reject("size", err.Error())
	}
	if err := s.messages.ValidateMessage(message, vctx); err != nil {
		return nil, s.reject("message", err.Error())
	}

	// Canonical payload for storage and duplicate detection.
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, s.reject("format", "Unable to serialize message payload")
	}
	hash := xxhash.Sum64(payload)

	if existing, err := s.store.FindByHash(ctx, hash); err == nil {
		s.stats.RecordDuplicate()
		s.logger.Info("duplicate submission",
			"submission_id", existing.ID, "payload_hash", fmt.Sprintf("%016x", hash))
		return &SubmitResult{ID: existing.ID, Duplicate: true}, nil
	} else if !errors.Is(err, queue.ErrNotFound) {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}

	m := &queue.Message{
		ID:            uuid.NewString(),
		PayloadHash:   hash,
		Payload:       payload,
		DestinationID: destination,
		SubmittedBy:   req.SubmittedBy,
	}
	if err := s.store.Enqueue(ctx, m); err != nil {
		return nil, fmt.Errorf("enqueue submission: %w", err)
	}

	s.stats.RecordAccepted()
	s.logger.Info("submission accepted",
		"submission_id", m.ID,
		"destination_id", destination,
		"payload_bytes", len(payload),
		"submitted_by", req.SubmittedBy)
	return &SubmitResult{ID: m.ID}, nil
}

// StatusResult describes a queued submission for the status API.
type StatusResult struct {
	ID               string       `json:"id"`
	Status           queue.Status `json:"status"`
	Attempts         int          `json:"attempts"`
	LastError        string       `json:"last_error,omitempty"`
	GatewayMessageID string       `json:"gateway_message_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Status retrieves the delivery status of a submission.
// Returns queue.ErrNotFound for unknown IDs.
func (s *SubmissionService) Status(ctx context.Context, id string) (*StatusResult, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		ID:               m.ID,
		Status:           m.Status,
		Attempts:         m.Attempts,
		LastError:        m.LastError,
		GatewayMessageID: m.GatewayMessageID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

// DeadLetters lists submissions that exhausted their retries.
func (s *SubmissionService) DeadLetters(ctx context.Context, limit int) ([]*StatusResult, error) {
	if limit <= 0 {
		limit = 100
	}
	messages, err := s.store.DeadLetters(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*StatusResult, 0, len(messages))
	for _, m := range messages {
		out = append(out, &StatusResult{
			ID:        m.ID,
			Status:    m.Status,
			Attempts:  m.Attempts,
			LastError: m.LastError,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return out, nil
}

func (s *SubmissionService) reject(stage string, errs ...string) error {
	s.stats.RecordRejected(stage)
	s.logger.Info("submission rejected", "stage", stage, "errors", errs)
	return &RejectionError{Stage: stage, Errors: errs}
}

// asAny widens the decoded tree for the gate validators, which accept
// any payload shape.
func asAny(tree map[string]any) any {
	if tree == nil {
		return nil
	}
	return tree
}
