package documents

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/png"
	"testing"
	"time"

	"qualification-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2))))
	return buf.Bytes()
}

func TestSigner_Sign(t *testing.T) {
	s := NewSigner("credit-authorization-v1")
	s.now = func() time.Time { return time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC) }

	img := signaturePNG(t)
	f, err := s.Sign(SignatureRequest{FullName: "  Ana Pérez ", IDNumber: "1-234-567", SignaturePNG: img})
	require.NoError(t, err)

	assert.Equal(t, models.SlotCreditAuthorization, f.Slot)
	assert.Equal(t, "application/json", f.ContentType)
	assert.Contains(t, f.Name, "signed-")

	var env signedEnvelope
	require.NoError(t, json.Unmarshal(f.Content, &env))
	digest := sha256.Sum256(img)
	assert.Equal(t, "credit-authorization-v1", env.TemplateID)
	assert.Equal(t, "Ana Pérez", env.FullName)
	assert.Equal(t, "1-234-567", env.IDNumber)
	assert.Equal(t, hex.EncodeToString(digest[:]), env.SignatureSHA256)
	assert.True(t, env.SignedAt.Equal(time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)))
}

func TestSigner_Sign_Invalid(t *testing.T) {
	s := NewSigner("tpl")
	img := signaturePNG(t)

	tests := []struct {
		name string
		req  SignatureRequest
	}{
		{"missing name", SignatureRequest{IDNumber: "1", SignaturePNG: img}},
		{"missing id", SignatureRequest{FullName: "Ana", SignaturePNG: img}},
		{"empty signature", SignatureRequest{FullName: "Ana", IDNumber: "1"}},
		{"not a png", SignatureRequest{FullName: "Ana", IDNumber: "1", SignaturePNG: []byte("GIF89a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sign(tt.req)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}
