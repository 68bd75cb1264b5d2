//go:build !integration

package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetTranslator(t *testing.T) {
	assert.Same(t, GetTranslator(), GetTranslator())
}

func TestTranslator_Translate(t *testing.T) {
	tr := NewTranslator()

	tests := []struct {
		name   string
		key    string
		locale string
		want   string
	}{
		{"english", ErrKeyStoreNotFound, "en", "Store not found"},
		{"portuguese", ErrKeyStoreNotFound, "pt", "Store não encontrado"},
		{"dutch", ErrKeyOriginUnreachable, "nl", "Origin onbereikbaar"},
		{"empty locale uses default", ErrKeyAPIKeyRequired, "", "API key is required"},
		{"unsupported locale uses default", ErrKeyNoActive, "fr", "No generation is active"},
		{"unknown key is returned as is", "version must be set", "pt", "version must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Translate(tt.key, tt.locale))
		})
	}
}

func TestTranslator_EveryLocaleCoversEveryKey(t *testing.T) {
	for locale, messages := range defaultMessages {
		assert.Len(t, messages, len(defaultMessages[DefaultLocale]), locale)
		for key := range defaultMessages[DefaultLocale] {
			assert.NotEmpty(t, messages[key], "%s missing %s", locale, key)
		}
	}
}

func TestGetLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", DefaultLocale},
		{"plain language", "nl", "nl"},
		{"region stripped", "pt-BR", "pt"},
		{"upper case", "PT-br", "pt"},
		{"quality list", "pt-BR,pt;q=0.9,en;q=0.8", "pt"},
		{"first supported wins", "fr-FR,nl;q=0.7", "nl"},
		{"nothing supported", "fr,de", DefaultLocale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(AcceptLanguageHeader, tt.header)
			}
			assert.Equal(t, tt.want, GetLocale(c))
		})
	}
}
