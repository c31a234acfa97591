package handler

import (
	"gigboard/backend/internal/chathub"
	"gigboard/backend/internal/storage"
)

// Handler carries the hub, the storage gateway and the secret used to verify
// bearer credentials.
type Handler struct {
	Hub       *chathub.Hub
	Storage   storage.Storage
	JWTSecret []byte
}

func NewHandler(hub *chathub.Hub, s storage.Storage, jwtSecret []byte) *Handler {
	return &Handler{Hub: hub, Storage: s, JWTSecret: jwtSecret}
}
