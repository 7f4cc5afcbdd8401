package proto

// ID is a server-assigned identifier. The client never mints or mutates one.
type ID string

// User is a chat participant as returned by the API.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name"`
}

// Message type tags. Only standard messages exist today.
const MessageTypeStandard = "0"

// Message is a single chat message within a room.
type Message struct {
	ID      ID     `json:"id"`
	Content string `json:"content"`
	RoomID  ID     `json:"room_id"`
	Author  User   `json:"author"`
	Type    string `json:"type"`
}

// RoomMe carries the calling user's membership metadata for a room.
type RoomMe struct {
	PermissionLevel int `json:"permission_level"`
}

// Room is a chat room the current user belongs to.
type Room struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	OwnerID     ID       `json:"owner_id"`
	Type        int      `json:"type"`
	Me          RoomMe   `json:"me"`
	LastMessage *Message `json:"last_message,omitempty"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the success body for POST /login.
type LoginResponse struct {
	Token string `json:"token"`
}

// MeResponse is the body for GET /users/me: the current user's fields
// inline plus the rooms they belong to.
type MeResponse struct {
	User
	Rooms map[ID]Room `json:"rooms"`
}
