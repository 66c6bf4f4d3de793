// Package unzip transparently decompresses gzip request bodies.
package unzip

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/KretovDmitry/joint-account-service/pkg/logger"
)

// gzipBody replaces Read of the original body with a decompressing one.
type gzipBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzipBody(body io.ReadCloser) (*gzipBody, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("new gzip reader: %w", err)
	}
	return &gzipBody{body: body, zr: zr}, nil
}

func (b *gzipBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

func (b *gzipBody) Close() error {
	if err := b.body.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return b.zr.Close()
}

// Middleware decompresses requests sent with Content-Encoding: gzip.
// A body that is not valid gzip is rejected with 400.
func Middleware(logger logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f := func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			body, err := newGzipBody(r.Body)
			if err != nil {
				logger.With(r.Context()).Warnf("unzip request body: %s", err)
				http.Error(w, "malformed gzip body", http.StatusBadRequest)
				return
			}
			defer body.Close()

			r.Body = body
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(f)
	}
}
