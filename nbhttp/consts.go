// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

// ServerVersion is sent in the Server and User-Agent headers.
const ServerVersion = "nodehttp/1.0"

// Methods.
const (
	MethodGet    = "GET"
	MethodHead   = "HEAD"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// Header names.
const (
	HeaderETag          = "ETag"
	HeaderHost          = "Host"
	HeaderServer        = "Server"
	HeaderDate          = "Date"
	HeaderUserAgent     = "User-Agent"
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderConnection    = "Connection"
	HeaderKeepAlive     = "Keep-Alive"
)

// Status codes.
const (
	StatusOK          = 200
	StatusNoContent   = 204
	StatusNotModified = 304

	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusGone                = 410
	StatusLengthRequired      = 411
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
	StatusServiceUnavailable  = 503
	StatusVersionNotSupported = 505
)

const (
	crlf       = "\r\n"
	headerTail = "\r\n\r\n"
)
