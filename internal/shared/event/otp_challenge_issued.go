package event

const ChallengeIssuedDestination string = "otp.challenge.issued"

// ChallengeIssuedMessage never carries the code.
type ChallengeIssuedMessage struct {
	ChallengeID int64  `json:"challenge_id,string"`
	Reference   string `json:"reference"`
	Contact     string `json:"contact"`
	ContactKind string `json:"contact_kind"`
	Purpose     string `json:"purpose"`
	Channel     string `json:"channel"`
	Demo        bool   `json:"demo"`
	ExpiresAt   int64  `json:"expires_at"`
}
