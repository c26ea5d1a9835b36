package models

// Room is a chat room the user belongs to, as returned by /chat/rooms/me.
// Unread is patched by unread push events and zeroed when the room becomes
// the active room.
type Room struct {
	ID          int64  `json:"room_id"`
	Title       string `json:"title"`
	Unread      int    `json:"unread"`
	MemberCount int    `json:"member_cnt"`
}

// PublicRoom is one entry of the public room catalog. It is a read-only
// projection: the catalog is refetched wholesale, never patched in place.
type PublicRoom struct {
	ID          int64  `json:"room_id"`
	Title       string `json:"title"`
	MemberCount int    `json:"member_cnt"`
}

// CreateRoomRequest is the body of POST /chat/rooms. This client only
// creates public rooms.
type CreateRoomRequest struct {
	RoomType  string  `json:"room_type"`
	Title     string  `json:"title"`
	MemberIDs []int64 `json:"member_ids"`
}

type CreateRoomResponse struct {
	RoomID int64  `json:"room_id"`
	Error  string `json:"error,omitempty"`
}
