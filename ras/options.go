package ras

import "strings"

// ConnectionFlags are the native flags describing how a connection was
// established.
type ConnectionFlags uint32

const (
	// FlagAllUsers marks a connection made from an all-users phone book entry.
	FlagAllUsers ConnectionFlags = 0x1
	// FlagGlobalCreds marks a connection dialed with default credentials.
	FlagGlobalCreds ConnectionFlags = 0x2
	// FlagOwnerKnown is set when the owner of the connection is known.
	FlagOwnerKnown ConnectionFlags = 0x4
	// FlagOwnerMatch is set when the current user owns the connection.
	FlagOwnerMatch ConnectionFlags = 0x8
)

// ConnectionOptions is the immutable option set of an established
// connection.
type ConnectionOptions struct {
	flags ConnectionFlags
}

// NewConnectionOptions returns the option set for flags.
func NewConnectionOptions(flags ConnectionFlags) *ConnectionOptions {
	return &ConnectionOptions{flags: flags}
}

// Flags returns the raw flag set.
func (o *ConnectionOptions) Flags() ConnectionFlags { return o.flags }

// AllUsers reports whether the entry is available to all users.
func (o *ConnectionOptions) AllUsers() bool { return o.flags&FlagAllUsers != 0 }

// GlobalCredentials reports whether default credentials were used.
func (o *ConnectionOptions) GlobalCredentials() bool { return o.flags&FlagGlobalCreds != 0 }

// OwnerKnown reports whether the connection owner is known.
func (o *ConnectionOptions) OwnerKnown() bool { return o.flags&FlagOwnerKnown != 0 }

// OwnerMatch reports whether the current user owns the connection.
func (o *ConnectionOptions) OwnerMatch() bool { return o.flags&FlagOwnerMatch != 0 }

func (o *ConnectionOptions) String() string {
	var names []string
	if o.AllUsers() {
		names = append(names, "all-users")
	}
	if o.GlobalCredentials() {
		names = append(names, "global-creds")
	}
	if o.OwnerKnown() {
		names = append(names, "owner-known")
	}
	if o.OwnerMatch() {
		names = append(names, "owner-match")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
