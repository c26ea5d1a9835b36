package api

import (
	"context"
	"fmt"
	"net/http"

	"kuttalk/internal/models"
)

// MyRooms fetches the rooms the user belongs to, with unread counters.
func (c *Client) MyRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := c.do(ctx, http.MethodGet, "/chat/rooms/me", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// PublicRooms fetches the public room catalog.
func (c *Client) PublicRooms(ctx context.Context) ([]models.PublicRoom, error) {
	var rooms []models.PublicRoom
	if err := c.do(ctx, http.MethodGet, "/chat/rooms/public", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom creates a public room and returns its id. Duplicate titles
// surface as ErrConflict.
func (c *Client) CreateRoom(ctx context.Context, title string) (int64, error) {
	req := models.CreateRoomRequest{
		RoomType:  "PUBLIC",
		Title:     title,
		MemberIDs: []int64{},
	}
	var resp models.CreateRoomResponse
	if err := c.do(ctx, http.MethodPost, "/chat/rooms", req, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("create room: %s", resp.Error)
	}
	return resp.RoomID, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/rooms/%d/join", roomID), nil, nil)
}

func (c *Client) LeaveRoom(ctx context.Context, roomID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/chat/rooms/%d/member", roomID), nil, nil)
}
