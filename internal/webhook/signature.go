package webhook

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"

	"attribution_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-HubSpot-Signature"

// maxBodyBytes caps the webhook payload size. CRM batches top out at a few
// hundred events, far below this.
const maxBodyBytes = 1 << 20

// SignatureMiddleware verifies the v1 request signature: the hex-encoded
// SHA-256 of the app secret concatenated with the raw body. With an empty
// secret, verification is disabled.
func SignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "unreadable request body", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !validSignature(secret, body, c.GetHeader(signatureHeader)) {
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook signature", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func validSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	sum := sha256.Sum256(append([]byte(secret), body...))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
