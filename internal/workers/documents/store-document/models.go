// internal/workers/documents/store-document/models.go
package storedocument

import "qualification-workers/internal/models"

// Input carries either a file or, for the credit-authorization slot only, a
// signature to be bound to the authorization template. []byte fields travel
// as base64 strings.
type Input struct {
	TenantID    string              `json:"tenantId"`
	ProspectID  string              `json:"prospectId"`
	Slot        models.DocumentSlot `json:"slot"`
	FileName    string              `json:"fileName,omitempty"`
	ContentType string              `json:"contentType,omitempty"`
	Content     []byte              `json:"content,omitempty"`
	Signature   *SignatureInput     `json:"signature,omitempty"`
}

type SignatureInput struct {
	FullName     string `json:"fullName"`
	IDNumber     string `json:"idNumber"`
	SignaturePNG []byte `json:"signaturePng"`
}

type Output struct {
	Document models.ArtifactRef `json:"document"`
}
