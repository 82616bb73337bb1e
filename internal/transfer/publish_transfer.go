package transfer

import "github.com/golang-jwt/jwt/v5"

// ChannelResult is the outcome of one channel's publish attempt. Channels
// succeed or fail independently; a multi-channel publish reports one entry
// per channel.
type ChannelResult struct {
	OK         bool   `json:"ok"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ApprovalClaims is the signed payload of a one-click approval link.
type ApprovalClaims struct {
	PostID string `json:"post_id"`
	jwt.RegisteredClaims
}
