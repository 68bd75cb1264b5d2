// Package i18n translates the messages of the error envelopes the service
// produces itself. Origin bodies are relayed untouched.
package i18n

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale is the default language locale (English).
	DefaultLocale = "en"
	// AcceptLanguageHeader is the HTTP header name for language preference.
	AcceptLanguageHeader = "Accept-Language"
)

var (
	defaultTranslator *Translator
	translatorOnce    sync.Once
)

// Translator handles message translation for different locales.
type Translator struct {
	messages map[string]map[string]string
}

// NewTranslator creates a new translator with the default messages.
func NewTranslator() *Translator {
	return &Translator{messages: defaultMessages}
}

// GetTranslator returns the default singleton translator instance.
func GetTranslator() *Translator {
	translatorOnce.Do(func() {
		defaultTranslator = NewTranslator()
	})
	return defaultTranslator
}

// Translate returns the message for key in locale, falling back to
// DefaultLocale. Unknown keys are returned as they are, so callers may pass
// an already formatted message.
func (t *Translator) Translate(key, locale string) string {
	if msg, ok := t.messages[locale][key]; ok {
		return msg
	}
	if msg, ok := t.messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// GetLocale picks the first supported language of the Accept-Language
// header, e.g. "pt" for "pt-BR,en;q=0.8".
func GetLocale(c *gin.Context) string {
	header := c.GetHeader(AcceptLanguageHeader)
	if header == "" {
		return DefaultLocale
	}
	for _, part := range strings.Split(header, ",") {
		lang := strings.TrimSpace(strings.Split(part, ";")[0])
		if idx := strings.Index(lang, "-"); idx > 0 {
			lang = lang[:idx]
		}
		lang = strings.ToLower(lang)
		if _, ok := defaultMessages[lang]; ok {
			return lang
		}
	}
	return DefaultLocale
}

// T translates key for the locale of the request.
func T(c *gin.Context, key string) string {
	return GetTranslator().Translate(key, GetLocale(c))
}

var defaultMessages = map[string]map[string]string{
	"en": {
		ErrKeyInvalidRequestBody: "Invalid request body",
		ErrKeyInternalError:      "An unexpected error occurred",
		ErrKeyAPIKeyRequired:     "API key is required",
		ErrKeyInvalidAPIKey:      "Invalid API key",
		ErrKeyRateLimitExceeded:  "Rate limit exceeded",
		ErrKeyRouteNotFound:      "Route not found",
		ErrKeyTargetNotAllowed:   "Target host not allowed",
		ErrKeyNotForwardable:     "Request cannot be forwarded",
		ErrKeyOriginUnreachable:  "Origin unreachable",
		ErrKeyStorageUnavailable: "Storage unavailable",
		ErrKeyInvalidStoreName:   "Invalid store name",
		ErrKeyStoreNotFound:      "Store not found",
		ErrKeyInstallFailed:      "Generation could not be installed",
		ErrKeyNoWaiting:          "No generation is waiting",
		ErrKeyNoActive:           "No generation is active",
		ErrKeyURLRequired:        "url query parameter is required",
		ErrKeyURLInvalid:         "url is not a valid URL",
	},
	"pt": {
		ErrKeyInvalidRequestBody: "Corpo da requisição inválido",
		ErrKeyInternalError:      "Ocorreu um erro inesperado",
		ErrKeyAPIKeyRequired:     "Chave de API é obrigatória",
		ErrKeyInvalidAPIKey:      "Chave de API inválida",
		ErrKeyRateLimitExceeded:  "Muitas requisições, tente novamente mais tarde",
		ErrKeyRouteNotFound:      "Rota não encontrada",
		ErrKeyTargetNotAllowed:   "Host de destino não permitido",
		ErrKeyNotForwardable:     "A requisição não pode ser encaminhada",
		ErrKeyOriginUnreachable:  "Origem inacessível",
		ErrKeyStorageUnavailable: "Armazenamento indisponível",
		ErrKeyInvalidStoreName:   "Nome de store inválido",
		ErrKeyStoreNotFound:      "Store não encontrado",
		ErrKeyInstallFailed:      "Não foi possível instalar a geração",
		ErrKeyNoWaiting:          "Nenhuma geração aguardando",
		ErrKeyNoActive:           "Nenhuma geração ativa",
		ErrKeyURLRequired:        "O parâmetro url é obrigatório",
		ErrKeyURLInvalid:         "url não é uma URL válida",
	},
	"nl": {
		ErrKeyInvalidRequestBody: "Ongeldige aanvraag body",
		ErrKeyInternalError:      "Er is een onverwachte fout opgetreden",
		ErrKeyAPIKeyRequired:     "API-sleutel is vereist",
		ErrKeyInvalidAPIKey:      "Ongeldige API-sleutel",
		ErrKeyRateLimitExceeded:  "Te veel verzoeken, probeer het later opnieuw",
		ErrKeyRouteNotFound:      "Route niet gevonden",
		ErrKeyTargetNotAllowed:   "Doelhost niet toegestaan",
		ErrKeyNotForwardable:     "Verzoek kan niet worden doorgestuurd",
		ErrKeyOriginUnreachable:  "Origin onbereikbaar",
		ErrKeyStorageUnavailable: "Opslag niet beschikbaar",
		ErrKeyInvalidStoreName:   "Ongeldige store-naam",
		ErrKeyStoreNotFound:      "Store niet gevonden",
		ErrKeyInstallFailed:      "Generatie kon niet worden geïnstalleerd",
		ErrKeyNoWaiting:          "Er wacht geen generatie",
		ErrKeyNoActive:           "Er is geen actieve generatie",
		ErrKeyURLRequired:        "De url-queryparameter is vereist",
		ErrKeyURLInvalid:         "url is geen geldige URL",
	},
}
