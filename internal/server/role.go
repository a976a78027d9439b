package server

// ConnRole is the authority level of a connection. Every connection starts
// as a viewer; logging in binds it to a player, and the admin password
// elevates it to admin.
type ConnRole string

const (
	RoleViewer ConnRole = "viewer"
	RolePlayer ConnRole = "player"
	RoleAdmin  ConnRole = "admin"
)
