package models

import "kuttalk/internal/utils"

var (
	ErrUnknownEvent = utils.NewKuttalkError("unknown event type")
	ErrRoomNotFound = utils.NewKuttalkError("room not found")
)
