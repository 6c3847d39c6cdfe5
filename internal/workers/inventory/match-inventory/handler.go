// internal/workers/inventory/match-inventory/handler.go
package matchinventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/intake"
	"qualification-workers/internal/inventory"
	"qualification-workers/internal/tenants"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-inventory"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId", "capacity", "preferences"],
	"properties": {
		"tenantId": {"type": "string", "minLength": 1},
		"capacity": {
			"type": "object",
			"required": ["maxPropertyPrice"],
			"properties": {
				"maxPropertyPrice": {"type": "integer", "minimum": 0}
			}
		},
		"preferences": {
			"type": "object",
			"properties": {
				"zones":     {"type": "array", "items": {"type": "string"}},
				"bedrooms":  {"type": ["integer", "null"], "minimum": 0},
				"bathrooms": {"type": ["integer", "null"], "minimum": 0}
			}
		}
	}
}`)

type Handler struct {
	config  *Config
	tenants tenants.Reader
	matcher intake.MatchFinder
	errors  *errors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, tenantReader tenants.Reader, matcher intake.MatchFinder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		tenants: tenantReader,
		matcher: matcher,
		errors:  errors.NewErrorHandler(l),
		logger:  l,
		now:     time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := inputSchema.Validate(job.Variables); err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// execute never fails: an ineligible capacity, a plan without matching and an
// unreachable tenant store all end in an empty list with a status.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{Matches: []inventory.MatchResult{}}

	if !input.Capacity.Eligible() {
		out.MatchingStatus = intake.MatchingIneligible
		out.Notice = string(intake.NoticeNoPreApproval)
		return out, nil
	}

	cfg, err := h.tenants.GetTenantConfig(ctx, input.TenantID, input.FormID)
	switch {
	case err != nil:
		h.logger.Warn("tenant config unavailable, skipping matching", map[string]interface{}{
			"tenantId": input.TenantID,
			"error":    err.Error(),
		})
		out.MatchingStatus = intake.MatchingTenantUnavailable
	case !tenants.MatchingEntitled(*cfg, h.now()):
		out.MatchingStatus = intake.MatchingNotEntitled
	default:
		out.Matches = h.matcher.MatchForTenant(ctx, input.TenantID, input.Capacity, inventory.CriteriaFromPreferences(input.Preferences))
		out.MatchingStatus = intake.MatchingOK
	}

	out.MatchCount = len(out.Matches)
	if out.MatchCount == 0 {
		out.Notice = string(intake.NoticeNoInventoryMatch)
	}
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
