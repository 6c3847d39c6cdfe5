// internal/workers/intake/advance-intake/handler.go
package advanceintake

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/documents"
	"qualification-workers/internal/intake"
	"qualification-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "advance-intake"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["action"],
	"properties": {
		"action": {
			"type": "string",
			"enum": ["start", "preferences", "income", "contact", "decide", "attach", "sign", "advance", "back", "results"]
		},
		"sessionId":       {"type": "string", "minLength": 1},
		"tenantId":        {"type": "string", "minLength": 1},
		"formId":          {"type": "string"},
		"preferences":     {"type": "object"},
		"monthlyIncome":   {"type": "number"},
		"contact":         {"type": "object"},
		"wantsValidation": {"type": "boolean"},
		"document": {
			"type": "object",
			"required": ["slot", "content"],
			"properties": {
				"slot":    {"type": "string"},
				"content": {"type": "string", "minLength": 1}
			}
		},
		"signature": {"type": "object"}
	},
	"allOf": [
		{"if": {"properties": {"action": {"const": "start"}}}, "then": {"required": ["tenantId"]}, "else": {"required": ["sessionId"]}},
		{"if": {"properties": {"action": {"const": "preferences"}}}, "then": {"required": ["preferences"]}},
		{"if": {"properties": {"action": {"const": "income"}}}, "then": {"required": ["monthlyIncome"]}},
		{"if": {"properties": {"action": {"const": "contact"}}}, "then": {"required": ["contact"]}},
		{"if": {"properties": {"action": {"const": "decide"}}}, "then": {"required": ["wantsValidation"]}},
		{"if": {"properties": {"action": {"const": "attach"}}}, "then": {"required": ["document"]}},
		{"if": {"properties": {"action": {"const": "sign"}}}, "then": {"required": ["signature"]}}
	]
}`)

// IntakeService is the part of intake.Service the worker drives.
type IntakeService interface {
	Start(ctx context.Context, tenantID, formID string) (*intake.Session, error)
	Get(ctx context.Context, id string) (*intake.Session, error)
	SetPreferences(ctx context.Context, id string, prefs models.Preferences) (*intake.Session, error)
	SetIncome(ctx context.Context, id string, monthlyIncome float64) (*intake.Session, error)
	SetContact(ctx context.Context, id string, contact models.Contact) (*intake.Session, error)
	Decide(ctx context.Context, id string, wantsValidation bool) (*intake.Session, error)
	AttachDocument(ctx context.Context, id string, f models.File) (*intake.Session, error)
	SignCreditAuthorization(ctx context.Context, id string, req documents.SignatureRequest) (*intake.Session, error)
	Advance(ctx context.Context, id string) (*intake.Session, error)
	Back(ctx context.Context, id string) (*intake.Session, error)
	EnterResults(ctx context.Context, id string) error
	Results(ctx context.Context, id string) (*intake.Outcome, error)
}

type Handler struct {
	config  *Config
	service IntakeService
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, service IntakeService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		errors:  errors.NewErrorHandler(l),
		logger:  l,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	sess, err := h.dispatch(ctx, input)
	if err != nil {
		return nil, mapIntakeError(input, err)
	}

	h.logger.Info("intake action applied", map[string]interface{}{
		"action":    input.Action,
		"sessionId": sess.ID,
		"step":      sess.Step,
	})

	out := &Output{SessionID: sess.ID, Step: sess.Step, Session: sess}
	if sess.Step == intake.StepResults {
		outcome, err := h.service.Results(ctx, sess.ID)
		if err != nil {
			return nil, mapIntakeError(input, err)
		}
		out.Outcome = outcome
	}
	return out, nil
}

func (h *Handler) dispatch(ctx context.Context, input *Input) (*intake.Session, error) {
	id := input.SessionID

	switch input.Action {
	case ActionStart:
		return h.service.Start(ctx, input.TenantID, input.FormID)
	case ActionPreferences:
		return h.service.SetPreferences(ctx, id, *input.Preferences)
	case ActionIncome:
		return h.service.SetIncome(ctx, id, *input.MonthlyIncome)
	case ActionContact:
		return h.service.SetContact(ctx, id, *input.Contact)
	case ActionDecide:
		return h.service.Decide(ctx, id, *input.WantsValidation)
	case ActionAttach:
		return h.service.AttachDocument(ctx, id, *input.Document)
	case ActionSign:
		return h.service.SignCreditAuthorization(ctx, id, documents.SignatureRequest{
			FullName:     input.Signature.FullName,
			IDNumber:     input.Signature.IDNumber,
			SignaturePNG: input.Signature.SignaturePNG,
		})
	case ActionAdvance:
		return h.service.Advance(ctx, id)
	case ActionBack:
		return h.service.Back(ctx, id)
	case ActionResults:
		if err := h.service.EnterResults(ctx, id); err != nil {
			return nil, err
		}
		return h.service.Get(ctx, id)
	}
	return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown action %q", input.Action))
}

// mapIntakeError turns intake and custody failures into job errors. Step
// validation failures are business outcomes, not retries.
func mapIntakeError(input *Input, err error) error {
	if _, ok := errors.AsStandardError(err); ok {
		return err
	}

	var stdErr *errors.StandardError
	var verr *intake.ValidationError
	switch {
	case stderrors.As(err, &verr):
		stdErr = errors.NewStepValidationError(string(verr.Step), verr.Error())
	case stderrors.Is(err, intake.ErrSessionNotFound):
		stdErr = errors.NewSessionNotFoundError(input.SessionID)
	case stderrors.Is(err, intake.ErrBusy):
		stdErr = errors.NewSessionBusyError(input.SessionID)
	case stderrors.Is(err, intake.ErrPersistence):
		stdErr = errors.NewProspectSaveFailedError(err)
	case stderrors.Is(err, documents.ErrCustodyUnauthorized):
		stdErr = errors.NewCustodyUnauthorizedError(err.Error())
	case stderrors.Is(err, documents.ErrRejected):
		stdErr = errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, documents.ErrStoreFailed):
		stdErr = errors.NewDocumentStoreFailedError(err)
	default:
		stdErr = errors.NewInternalError(err)
	}
	return stdErr.WithMetadata("action", string(input.Action))
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
