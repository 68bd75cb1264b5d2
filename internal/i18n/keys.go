package i18n

// Error message translation keys.
const (
	// ErrKeyInvalidRequestBody indicates a body that cannot be bound.
	ErrKeyInvalidRequestBody = "error.invalid_request_body"
	// ErrKeyInternalError indicates an internal server error.
	ErrKeyInternalError = "error.internal_error"
	// ErrKeyAPIKeyRequired indicates that an API key is required.
	ErrKeyAPIKeyRequired = "error.api_key_required"
	// ErrKeyInvalidAPIKey indicates an invalid API key.
	ErrKeyInvalidAPIKey = "error.invalid_api_key"
	// ErrKeyRateLimitExceeded indicates rate limit exceeded.
	ErrKeyRateLimitExceeded = "error.rate_limit_exceeded"

	ErrKeyRouteNotFound      = "error.route_not_found"
	ErrKeyTargetNotAllowed   = "error.target_not_allowed"
	ErrKeyNotForwardable     = "error.not_forwardable"
	ErrKeyOriginUnreachable  = "error.origin_unreachable"
	ErrKeyStorageUnavailable = "error.storage_unavailable"
	ErrKeyInvalidStoreName   = "error.invalid_store_name"
	ErrKeyStoreNotFound      = "error.store_not_found"
	ErrKeyInstallFailed      = "error.install_failed"
	ErrKeyNoWaiting          = "error.no_waiting_generation"
	ErrKeyNoActive           = "error.no_active_generation"
	ErrKeyURLRequired        = "error.url_required"
	ErrKeyURLInvalid         = "error.url_invalid"
)
