package auth

import "context"

// GroupLister is the slice of the store the guard needs. Every call
// re-reads the allow-list so a grant or revoke is effective immediately.
type GroupLister interface {
	ListAllowedGroups(ctx context.Context) (map[int64]struct{}, error)
}

type Guard struct {
	groups  GroupLister
	ownerID int64
}

func NewGuard(groups GroupLister, ownerID int64) *Guard {
	return &Guard{groups: groups, ownerID: ownerID}
}

// IsAuthorized reports whether a chat may use gated capabilities. Private
// chats are never authorized regardless of store contents. A store fault
// fails closed: the chat is treated as unauthorized and the error is
// returned for logging.
func (g *Guard) IsAuthorized(ctx context.Context, chatType string, chatID int64) (bool, error) {
	if chatType == "private" {
		return false, nil
	}
	allowed, err := g.groups.ListAllowedGroups(ctx)
	if err != nil {
		return false, err
	}
	_, ok := allowed[chatID]
	return ok, nil
}

func (g *Guard) IsOwner(userID int64) bool {
	return userID != 0 && userID == g.ownerID
}

// AllowsOwnerCommand gates administrative commands: they require both the
// owner identity and a private chat. The owner sending /allow inside a
// group is rejected so admin actions never play out in front of a group
// audience.
func (g *Guard) AllowsOwnerCommand(chatType string, userID int64) bool {
	return chatType == "private" && g.IsOwner(userID)
}
