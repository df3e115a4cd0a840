package machine

// Role identifies who spoke a turn in the oracle conversation.
type Role string

const (
	RoleUser   Role = "user"
	RoleOracle Role = "oracle"
)

// ChatTurn is one utterance in the oracle's conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OracleOpeningLine seeds every fresh oracle conversation.
const OracleOpeningLine = "I am the Reflective Oracle. I see what you hide. Speak."

// SeedOracleChat returns a new history containing only the opening turn.
func SeedOracleChat() []ChatTurn {
	return []ChatTurn{{Role: RoleOracle, Content: OracleOpeningLine}}
}
