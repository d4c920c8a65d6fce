package qr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-marketplace/internal/registry/qr"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	gen := qr.NewGenerator("test-secret")

	claim := qr.Claim{
		CollectionID: "col-1",
		TicketID:     7,
		Holder:       "alice",
	}

	encrypted, err := gen.EncryptClaim(claim)
	require.NoError(t, err)
	assert.NotEmpty(t, encrypted)

	decrypted, err := gen.DecryptClaim(encrypted)
	require.NoError(t, err)
	assert.Equal(t, claim, *decrypted)
}

func TestDecryptWithWrongSecret(t *testing.T) {
	gen := qr.NewGenerator("test-secret")
	other := qr.NewGenerator("other-secret")

	encrypted, err := gen.EncryptClaim(qr.Claim{CollectionID: "col-1", TicketID: 1, Holder: "alice"})
	require.NoError(t, err)

	// Wrong key produces garbage that fails to parse as a claim.
	_, err = other.DecryptClaim(encrypted)
	assert.Error(t, err)
}

func TestDecryptRejectsJunk(t *testing.T) {
	gen := qr.NewGenerator("test-secret")

	_, err := gen.DecryptClaim("not base64!!")
	assert.Error(t, err)

	_, err = gen.DecryptClaim("c2hvcnQ=") // valid base64, too short for an IV
	assert.Error(t, err)
}

func TestGenerateTicketQR(t *testing.T) {
	gen := qr.NewGenerator("test-secret")

	png, err := gen.GenerateTicketQR(qr.Claim{CollectionID: "col-1", TicketID: 0, Holder: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
