// Package validation holds the explicit checks that run before any store
// write on the realtime message path.
package validation

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	"chatroom-service/internal/models"
)

// MaxImageBytes is the decoded size ceiling for image payloads.
const MaxImageBytes = 5 * 1024 * 1024

// Rejection reasons surfaced to the sender as messageError events.
var (
	ErrMissingFields = errors.New("Missing required fields")
	ErrInvalidImage  = errors.New("Invalid image format")
	ErrImageTooLarge = errors.New("Image size too large (max 5MB)")
)

const imagePrefix = "data:image/"

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// ValidateSendMessage checks an inbound sendMessage payload. It returns nil on
// success or one of the rejection errors above; nothing is persisted on
// rejection.
func ValidateSendMessage(payload models.SendMessagePayload) error {
	if payload.RoomID == "" || payload.SenderID == "" || payload.Text == "" {
		return ErrMissingFields
	}

	if payload.Type == models.MessageTypeImage {
		if !IsValidBase64Image(payload.Text) {
			return ErrInvalidImage
		}
		size, err := ImageSizeFromBase64(payload.Text)
		if err != nil {
			return ErrInvalidImage
		}
		if size > MaxImageBytes {
			return ErrImageTooLarge
		}
	}

	return nil
}

// IsValidBase64Image reports whether the payload is a well-formed base64
// image data URL: an image media-type prefix, a comma-separated data segment,
// and a segment restricted to the base64 alphabet with at most two trailing
// padding characters.
func IsValidBase64Image(payload string) bool {
	if !strings.HasPrefix(payload, imagePrefix) {
		return false
	}

	_, data, found := strings.Cut(payload, ",")
	if !found || data == "" {
		return false
	}

	return base64Pattern.MatchString(data)
}

// ImageSizeFromBase64 returns the decoded byte length of the data segment.
// A payload without a data segment or one that does not decode is an error,
// never a zero size, so undecodable input cannot slip under the ceiling.
func ImageSizeFromBase64(payload string) (int, error) {
	_, data, found := strings.Cut(payload, ",")
	if !found {
		return 0, ErrInvalidImage
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, err
	}
	return len(decoded), nil
}
