package biz

import (
	"github.com/go-kratos/kratos/v2/errors"
)

var (
	BadRequest     = "BAD_REQUEST"
	NotFound       = "NOT_FOUND"
	InternalServer = "INTERNAL_SERVER"
)

// 定位与检索错误原因，均不致命。
const (
	ReasonPermissionDenied  = "LOCATION_PERMISSION_DENIED"
	ReasonUnavailable       = "LOCATION_UNAVAILABLE"
	ReasonTimeout           = "LOCATION_TIMEOUT"
	ReasonUnsupported       = "LOCATION_UNSUPPORTED"
	ReasonManualEmpty       = "MANUAL_LOOKUP_EMPTY"
	ReasonManualNoMatch     = "MANUAL_LOOKUP_NO_MATCH"
	ReasonManualTransport   = "MANUAL_LOOKUP_TRANSPORT"
	ReasonGeocoderTransport = "GEOCODER_TRANSPORT"
	ReasonMalformedRecord   = "MALFORMED_RECORD"
	ReasonSessionNotFound   = "SESSION_NOT_FOUND"
	ReasonInvalidCoordinate = "INVALID_COORDINATE"
)

var (
	ErrInternalServer = errors.New(500, InternalServer, "internal server error")

	ErrPermissionDenied    = errors.New(403, ReasonPermissionDenied, "Permission denied. Enable GPS or enter a location manually.")
	ErrPositionUnavailable = errors.New(503, ReasonUnavailable, "Location unavailable. Move to an open area or enter a city manually.")
	ErrLocationTimeout     = errors.New(504, ReasonTimeout, "Location lookup timed out. Tap retry or enter a city manually.")
	ErrUnsupported         = errors.New(501, ReasonUnsupported, "Geolocation unavailable. Enter a city below.")

	ErrManualLookupEmpty     = errors.New(400, ReasonManualEmpty, "Type a city, address, or landmark.")
	ErrManualLookupNoMatch   = errors.New(404, ReasonManualNoMatch, "We could not find that place. Try a nearby city.")
	ErrManualLookupTransport = errors.New(502, ReasonManualTransport, "We could not look up that place. Please try again.")

	ErrGeocoderTransport = errors.New(502, ReasonGeocoderTransport, "geocoding service unavailable")
	ErrMalformedRecord   = errors.New(422, ReasonMalformedRecord, "geocoder record has no usable coordinates")

	ErrSessionNotFound   = errors.New(404, ReasonSessionNotFound, "session not found or expired")
	ErrInvalidCoordinate = errors.New(400, ReasonInvalidCoordinate, "latitude/longitude out of range")
)

// IsLocationError 是否属于定位失败（需向用户展示并提供重试）。
func IsLocationError(err error) bool {
	e := errors.FromError(err)
	if e == nil {
		return false
	}
	switch e.Reason {
	case ReasonPermissionDenied, ReasonUnavailable, ReasonTimeout, ReasonUnsupported,
		ReasonManualEmpty, ReasonManualNoMatch, ReasonManualTransport:
		return true
	}
	return false
}
