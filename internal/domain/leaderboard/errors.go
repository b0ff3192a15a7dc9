package leaderboard

import "github.com/sellerboard/backend/internal/domain/shared"

// Leaderboard error codes
const (
	CodeViewerRequired = "VIEWER_REQUIRED"
	CodeFetchFailed    = "LEADERBOARD_FETCH_FAILED"
	CodeEntryNotFound  = "NOT_FOUND"
)

var (
	// ErrViewerRequired is returned when no authenticated seller id is available
	ErrViewerRequired = shared.NewDomainError(CodeViewerRequired, "User ID not found.")

	// ErrEntryNotFound is returned when a seller has no leaderboard row
	ErrEntryNotFound = shared.NewDomainError(CodeEntryNotFound, "Seller is not on the leaderboard")
)

// NewFetchError wraps a failed leaderboard read. The cause message is kept
// as the user-facing message so the page can show it verbatim.
func NewFetchError(cause error) *shared.DomainError {
	msg := "Failed to load leaderboard"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return shared.WrapDomainError(CodeFetchFailed, msg, cause)
}
