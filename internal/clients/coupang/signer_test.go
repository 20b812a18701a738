package coupang

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationDeterministic(t *testing.T) {
	s := newSigner("my-access-key", "my-secret-key")
	s.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC)
	}

	first := s.Authorization("GET", "/v2/providers/openapi/apis/api/v4/vendors/A001/ordersheets", "createdAtFrom=2026-08-01")
	second := s.Authorization("GET", "/v2/providers/openapi/apis/api/v4/vendors/A001/ordersheets", "createdAtFrom=2026-08-01")
	assert.Equal(t, first, second, "same inputs and clock must sign identically")

	mac := hmac.New(sha256.New, []byte("my-secret-key"))
	mac.Write([]byte("260830T123456Z" + "GET" + "/v2/providers/openapi/apis/api/v4/vendors/A001/ordersheets" + "createdAtFrom=2026-08-01"))
	expected := fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=my-access-key, signed-date=260830T123456Z, signature=%s",
		hex.EncodeToString(mac.Sum(nil)))
	assert.Equal(t, expected, first)
}

func TestAuthorizationVariesWithInputs(t *testing.T) {
	at := "260830T123456Z"
	s := newSigner("ak", "sk")

	base := s.authorizationAt("GET", "/path", "a=1", at)
	assert.NotEqual(t, base, s.authorizationAt("POST", "/path", "a=1", at))
	assert.NotEqual(t, base, s.authorizationAt("GET", "/other", "a=1", at))
	assert.NotEqual(t, base, s.authorizationAt("GET", "/path", "a=2", at))
	assert.NotEqual(t, base, s.authorizationAt("GET", "/path", "a=1", "260831T000000Z"))

	other := newSigner("ak", "different-secret")
	assert.NotEqual(t, base, other.authorizationAt("GET", "/path", "a=1", at))
}
