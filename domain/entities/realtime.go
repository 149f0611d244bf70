package entities

import "encoding/json"

// RealtimeSession is the short-lived credential used by a client to open a
// voice connection with the vendor directly.
type RealtimeSession struct {
	// ID is our own session identifier, used to key live transcripts and
	// stored results.
	ID           string
	Model        string
	ClientSecret string
	ExpiresAt    int64
	// ResultToken authorizes submitting the interview result for ID.
	ResultToken string
	// Payload is the vendor response, forwarded to callers untouched.
	Payload json.RawMessage
}
