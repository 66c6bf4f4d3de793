package header

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsApplicationJSONContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{contentType: "application/json", want: true},
		{contentType: " Application/JSON ", want: true},
		{contentType: "application/json; charset=utf-8", want: true},
		{contentType: "text/plain"},
		{contentType: ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/", nil)
		r.Header.Set("Content-Type", tt.contentType)
		assert.Equal(t, tt.want, IsApplicationJSONContentType(r), tt.contentType)
	}
}
