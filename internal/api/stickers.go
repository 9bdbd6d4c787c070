package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sticker is one sticker of a pack.
type Sticker struct {
	ID         uuid.UUID `json:"id"`
	Emoji      string    `json:"emoji"`
	Link       string    `json:"link"`
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StickerPack is a named set of stickers.
type StickerPack struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Public    bool        `json:"public"`
	Stickers  []Sticker   `json:"stickers"`
	Order     []uuid.UUID `json:"stickers_order"`
	UpdatedAt time.Time   `json:"updated_at"`
}

var stickerPackMethod = &Method{
	Name: "sticker_pack",
	StatusHandlers: map[int]StatusHandler{
		http.StatusNotFound: func(r *Response) error {
			return &StickerPackOrStickerNotFoundError{r.methodError("sticker pack or sticker not found")}
		},
	},
}

// StickerPack fetches a sticker pack with its stickers.
func (c *Caller) StickerPack(ctx context.Context, botID, packID uuid.UUID) (*StickerPack, error) {
	var pack StickerPack
	err := c.Call(ctx, botID, stickerPackMethod, request{
		verb: http.MethodGet,
		path: "/api/v3/botx/stickers/packs/" + packID.String(),
	}, &pack)
	if err != nil {
		return nil, err
	}
	return &pack, nil
}
