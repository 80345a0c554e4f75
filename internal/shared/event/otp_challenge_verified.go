package event

const ChallengeVerifiedDestination string = "otp.challenge.verified"

// ChallengeVerifiedMessage is consumed by the component that mints sessions
// once a contact is proven.
type ChallengeVerifiedMessage struct {
	ChallengeID int64  `json:"challenge_id,string"`
	Reference   string `json:"reference"`
	Contact     string `json:"contact"`
	ContactKind string `json:"contact_kind"`
	Purpose     string `json:"purpose"`
	Demo        bool   `json:"demo"`
	VerifiedAt  int64  `json:"verified_at"`
}
