package middleware

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// SignatureHeader carries the base64 Ed25519 signature of the
	// response payload.
	SignatureHeader = "X-Vinz-Signature"
	// TimestampHeader carries the RFC 3339 timestamp the signature
	// covers. A body replayed with a stale timestamp fails verification.
	TimestampHeader = "X-Vinz-Timestamp"
)

// signedResponseWriter buffers the response body instead of writing it
// through. The signature headers must reach the client before the body,
// so the middleware flushes the buffer itself once the signature is set.
type signedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *signedResponseWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *signedResponseWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ResponseSigningMiddleware signs every response with the license
// signing key so clients holding the public key can authenticate what
// the server said. The signature covers "<timestamp>.<body>".
func ResponseSigningMiddleware(key ed25519.PrivateKey) gin.HandlerFunc {
	if len(key) != ed25519.PrivateKeySize {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		w := &signedResponseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		timestamp := time.Now().UTC().Format(time.RFC3339)
		payload := append([]byte(timestamp+"."), w.body.Bytes()...)
		signature := ed25519.Sign(key, payload)

		header := w.ResponseWriter.Header()
		header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(signature))
		header.Set(TimestampHeader, timestamp)
		w.ResponseWriter.Write(w.body.Bytes())
	}
}
