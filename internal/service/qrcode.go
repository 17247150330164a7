package service

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

type bookQRPayload struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Owner       uuid.UUID `json:"owner"`
	Timestamp   int64     `json:"ts"`
}

// bookQRCode renders the listing's identity fields as a PNG data URL.
func bookQRCode(title, author, description string, owner uuid.UUID, at time.Time) (string, error) {
	payload, err := json.Marshal(bookQRPayload{
		Title:       title,
		Author:      author,
		Description: description,
		Owner:       owner,
		Timestamp:   at.UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
