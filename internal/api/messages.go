package api

import (
	"context"
	"fmt"
	"net/http"

	"kuttalk/internal/models"
)

// Messages fetches one page of a room's history, newest-first as the
// service returns it. The pager reverses pages into chronological order.
func (c *Client) Messages(ctx context.Context, roomID int64, page, limit int) ([]models.Message, error) {
	path := fmt.Sprintf("/chat/rooms/%d/messages?page=%d&limit=%d", roomID, page, limit)
	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
