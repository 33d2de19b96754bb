package link

import (
	"errors"
	"strings"
)

// Prefix marks a start parameter as a media deep-link payload.
// Registry codes are hex, so the underscore can never occur inside one.
const Prefix = "media_"

var ErrNoCode = errors.New("no code in start parameter")

// Encode embeds a registry code into a start parameter.
func Encode(code string) string {
	return Prefix + code
}

// Decode extracts the code from an inbound start parameter. The prefix
// is optional so links minted before the prefix existed keep working.
func Decode(param string) (string, error) {
	param = strings.TrimSpace(param)
	code := strings.TrimPrefix(param, Prefix)
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// DeepLink builds the public URL that opens the bot with the given code.
func DeepLink(botUsername, code string) string {
	return "https://t.me/" + botUsername + "?start=" + Encode(code)
}
