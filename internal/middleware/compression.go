package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// precompressed lists asset types whose bodies gain nothing from gzip.
var precompressed = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif", ".ico",
	".woff", ".woff2", ".gz", ".zip", ".mp4", ".pdf",
}

// Compression returns a middleware that compresses HTTP responses using gzip
// for clients that accept it. Images, fonts and archives are sent as is.
func Compression() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions(precompressed),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	)
}
