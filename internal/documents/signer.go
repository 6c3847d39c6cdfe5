package documents

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"qualification-workers/internal/models"
)

var ErrInvalidSignature = errors.New("invalid signature request")

// SignatureRequest carries what the prospect typed and drew on the
// credit-authorization step.
type SignatureRequest struct {
	FullName     string `json:"fullName"`
	IDNumber     string `json:"idNumber"`
	SignaturePNG []byte `json:"signaturePng"`
}

// Signer binds a signature to the credit-authorization template.
type Signer struct {
	templateID string
	now        func() time.Time
}

func NewSigner(templateID string) *Signer {
	return &Signer{templateID: templateID, now: time.Now}
}

type signedEnvelope struct {
	TemplateID      string    `json:"templateId"`
	FullName        string    `json:"fullName"`
	IDNumber        string    `json:"idNumber"`
	SignatureSHA256 string    `json:"signatureSha256"`
	Signature       string    `json:"signature"`
	SignedAt        time.Time `json:"signedAt"`
}

// Sign produces the opaque credit-authorization artifact. The result fills the
// same slot a direct upload would.
func (s *Signer) Sign(req SignatureRequest) (models.File, error) {
	name := strings.TrimSpace(req.FullName)
	id := strings.TrimSpace(req.IDNumber)
	if name == "" || id == "" {
		return models.File{}, fmt.Errorf("%w: name and id number are required", ErrInvalidSignature)
	}
	if len(req.SignaturePNG) == 0 {
		return models.File{}, fmt.Errorf("%w: signature image is empty", ErrInvalidSignature)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(req.SignaturePNG)); err != nil {
		return models.File{}, fmt.Errorf("%w: signature is not a png: %v", ErrInvalidSignature, err)
	}

	digest := sha256.Sum256(req.SignaturePNG)
	signedAt := s.now().UTC()

	body, err := json.Marshal(signedEnvelope{
		TemplateID:      s.templateID,
		FullName:        name,
		IDNumber:        id,
		SignatureSHA256: hex.EncodeToString(digest[:]),
		Signature:       base64.StdEncoding.EncodeToString(req.SignaturePNG),
		SignedAt:        signedAt,
	})
	if err != nil {
		return models.File{}, fmt.Errorf("encode signed envelope: %w", err)
	}

	return models.File{
		Slot:        models.SlotCreditAuthorization,
		Name:        fmt.Sprintf("signed-%d.json", signedAt.Unix()),
		ContentType: "application/json",
		Content:     body,
	}, nil
}
