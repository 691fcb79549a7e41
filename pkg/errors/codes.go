// Package errors provides the failure taxonomy for clovertg requests
package errors

// Kind classifies why a request to the relay API failed
type Kind string

// Request failure kinds
const (
	// KindClientError indicates the remote service answered with a 4xx status
	KindClientError Kind = "client_error"

	// KindNetworkError indicates a transport-level failure (timeout, DNS,
	// connection reset) or a 5xx answer from the remote service
	KindNetworkError Kind = "network_error"

	// KindUnknownError indicates any other failure during the request lifecycle
	KindUnknownError Kind = "unknown_error"
)

// KindInfo describes a failure kind
type KindInfo struct {
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

var kindInfoMap = map[Kind]KindInfo{
	KindClientError: {
		Kind:        KindClientError,
		Description: "Remote service rejected the request",
	},
	KindNetworkError: {
		Kind:        KindNetworkError,
		Description: "Request could not be delivered or the remote service failed",
	},
	KindUnknownError: {
		Kind:        KindUnknownError,
		Description: "Unexpected failure while performing the request",
	},
}

// GetKindInfo returns information about a failure kind
func GetKindInfo(kind Kind) KindInfo {
	info, exists := kindInfoMap[kind]
	if !exists {
		return KindInfo{
			Kind:        kind,
			Description: "Unknown failure kind",
		}
	}
	return info
}

// String returns the wire tag of the kind
func (k Kind) String() string {
	return string(k)
}
