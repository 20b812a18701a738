package coupang

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// signedDateLayout is the compact UTC timestamp format the gateway expects.
const signedDateLayout = "060102T150405Z"

// signer produces the per-request HMAC-SHA256 authorization header. The
// signed message is signed-date + method + path + query.
type signer struct {
	accessKey string
	secretKey string
	now       func() time.Time
}

func newSigner(accessKey, secretKey string) *signer {
	return &signer{
		accessKey: accessKey,
		secretKey: secretKey,
		now:       time.Now,
	}
}

// Authorization returns the CEA authorization header value for one request.
func (s *signer) Authorization(method, path, query string) string {
	signedDate := s.now().UTC().Format(signedDateLayout)
	return s.authorizationAt(method, path, query, signedDate)
}

func (s *signer) authorizationAt(method, path, query, signedDate string) string {
	message := signedDate + method + path + query
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(message))
	signature := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		s.accessKey, signedDate, signature)
}
