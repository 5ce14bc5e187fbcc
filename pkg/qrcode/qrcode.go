package qrcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRService generates QR codes pointing at public RSVP pages.
type QRService struct {
	baseURL string // e.g. "https://owlrsvp.com/e/"
}

func NewQRService(baseURL string) *QRService {
	return &QRService{
		baseURL: baseURL,
	}
}

// GenerateQRCode returns a PNG QR code for the event's RSVP page.
func (s *QRService) GenerateQRCode(eventURLCode string, size int) ([]byte, error) {
	fullURL := fmt.Sprintf("%s%s", s.baseURL, eventURLCode)

	png, err := qrcode.Encode(fullURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}

	return png, nil
}
