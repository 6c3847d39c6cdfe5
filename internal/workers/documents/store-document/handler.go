// internal/workers/documents/store-document/handler.go
package storedocument

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
	"qualification-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "store-document"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId", "prospectId", "slot"],
	"properties": {
		"tenantId":   {"type": "string", "minLength": 1},
		"prospectId": {"type": "string", "minLength": 1},
		"slot": {
			"type": "string",
			"enum": ["id_document", "income_registration", "pay_stub", "credit_authorization"]
		},
		"fileName":    {"type": "string"},
		"contentType": {"type": "string"},
		"content":     {"type": "string", "minLength": 1},
		"signature": {
			"type": "object",
			"required": ["fullName", "idNumber", "signaturePng"],
			"properties": {
				"fullName":     {"type": "string", "minLength": 1},
				"idNumber":     {"type": "string", "minLength": 1},
				"signaturePng": {"type": "string", "minLength": 1}
			}
		}
	},
	"oneOf": [
		{"required": ["content"]},
		{"required": ["signature"]}
	]
}`)

type Handler struct {
	config  *Config
	custody documents.Custody
	signer  *documents.Signer
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, custody documents.Custody, signer *documents.Signer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		custody: custody,
		signer:  signer,
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
	file, err := h.buildFile(input)
	if err != nil {
		return nil, err
	}

	ref, err := h.custody.Store(ctx, input.TenantID, input.ProspectID, file)
	if err != nil {
		return nil, MapCustodyError(err).
			WithMetadata("prospectId", input.ProspectID).
			WithMetadata("slot", string(input.Slot))
	}
	ref.Signed = input.Signature != nil

	h.logger.Info("document stored", map[string]interface{}{
		"tenantId":   input.TenantID,
		"prospectId": input.ProspectID,
		"slot":       input.Slot,
		"signed":     ref.Signed,
	})

	return &Output{Document: ref}, nil
}

func (h *Handler) buildFile(input *Input) (models.File, error) {
	if input.Signature == nil {
		return models.File{
			Slot:        input.Slot,
			Name:        input.FileName,
			ContentType: input.ContentType,
			Content:     input.Content,
		}, nil
	}

	if input.Slot != models.SlotCreditAuthorization {
		return models.File{}, errors.NewInvalidInputError("signature is only accepted for the credit_authorization slot")
	}
	if h.signer == nil {
		return models.File{}, errors.NewInternalError(stderrors.New("signer not configured"))
	}
	file, err := h.signer.Sign(documents.SignatureRequest{
		FullName:     input.Signature.FullName,
		IDNumber:     input.Signature.IDNumber,
		SignaturePNG: input.Signature.SignaturePNG,
	})
	if err != nil {
		return models.File{}, errors.NewInvalidInputError(err.Error())
	}
	return file, nil
}

// MapCustodyError translates custody sentinels into job errors.
func MapCustodyError(err error) *errors.StandardError {
	switch {
	case stderrors.Is(err, documents.ErrCustodyUnauthorized):
		return errors.NewCustodyUnauthorizedError(err.Error())
	case stderrors.Is(err, documents.ErrRejected):
		return errors.NewInvalidInputError(err.Error())
	default:
		return errors.NewDocumentStoreFailedError(err)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
