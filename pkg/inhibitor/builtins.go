package inhibitor

import (
	"context"
	"slices"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// Block reasons of the built-in checks.
const (
	ReasonOwner       = "owner"
	ReasonSuperUser   = "superUser"
	ReasonGuild       = "guild"
	ReasonDM          = "dm"
	ReasonNotNSFW     = "notNsfw"
	ReasonPermissions = "permissions"
)

const (
	PermissionClient = "client"
	PermissionUser   = "user"
)

// Builtins checks the restrictions declared on a command.
type Builtins struct {
	Owners      []string
	SuperUsers  []string
	Permissions message.PermissionChecker
	SelfID      func() string
	// IgnorePermissions is used for commands that do not set their own.
	IgnorePermissions cmd.Ignorer
}

func (b *Builtins) IsOwner(id string) bool { return slices.Contains(b.Owners, id) }

// IsSuperUser is true for owners as well.
func (b *Builtins) IsSuperUser(id string) bool {
	return b.IsOwner(id) || slices.Contains(b.SuperUsers, id)
}

// Test runs owner, superuser, channel, NSFW, client permission and user
// permission checks, in that order.
func (b *Builtins) Test(ctx context.Context, m message.Message, c *cmd.Command) (*Block, error) {
	author := m.AuthorID()
	switch {
	case c.OwnerOnly && !b.IsOwner(author):
		return &Block{Reason: ReasonOwner}, nil
	case c.SuperUserOnly && !b.IsSuperUser(author):
		return &Block{Reason: ReasonSuperUser}, nil
	case c.Channel == cmd.ChannelGuild && message.InDM(m):
		return &Block{Reason: ReasonGuild}, nil
	case c.Channel == cmd.ChannelDM && !message.InDM(m):
		return &Block{Reason: ReasonDM}, nil
	case c.OnlyNSFW && !m.ChannelNSFW():
		return &Block{Reason: ReasonNotNSFW}, nil
	}

	selfID := ""
	if b.SelfID != nil {
		selfID = b.SelfID()
	}
	missing, err := b.missing(ctx, m, selfID, c.ClientPermissions, c.ClientPermissionsFunc)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return &Block{Reason: ReasonPermissions, PermissionType: PermissionClient, Missing: missing}, nil
	}

	ignore := c.IgnorePermissions
	if ignore == nil {
		ignore = b.IgnorePermissions
	}
	if ignore != nil && ignore(ctx, m, c) {
		return nil, nil
	}
	missing, err = b.missing(ctx, m, author, c.UserPermissions, c.UserPermissionsFunc)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return &Block{Reason: ReasonPermissions, PermissionType: PermissionUser, Missing: missing}, nil
	}
	return nil, nil
}

// missing prefers the command's own function; permission bits are only
// checked inside guilds.
func (b *Builtins) missing(ctx context.Context, m message.Message, userID string, bits int64, fn func(context.Context, message.Message) ([]string, error)) ([]string, error) {
	if fn != nil {
		return fn(ctx, m)
	}
	if bits == 0 || b.Permissions == nil || message.InDM(m) {
		return nil, nil
	}
	return b.Permissions.Missing(ctx, m, userID, bits)
}
