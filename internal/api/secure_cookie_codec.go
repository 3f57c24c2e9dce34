package api

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/gorilla/securecookie"
)

const (
	secureCookieVersion   = "v1"
	secureCookieHashLabel = "heartnote.cookie.hash.v1"
	secureCookieBlockKey  = "heartnote.cookie.block.v1"
	secureCookieNameLabel = "heartnote.cookie."
)

var (
	errInvalidSecureCookieValue = errors.New("invalid secure cookie value")
	errSecureCookiePurpose      = errors.New("secure cookie purpose is required")
	errSecureCookieCodecMissing = errors.New("secure cookie codec is not initialized")
)

// secureCookieCodec encrypts and authenticates cookie values. The purpose is
// signed together with the value, so a cookie issued for one purpose cannot
// be replayed as another.
type secureCookieCodec struct {
	cookies *securecookie.SecureCookie
}

func newSecureCookieCodec(secretKey []byte) (*secureCookieCodec, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("secure cookie secret key is required")
	}

	hashKey := sha256.Sum256(append([]byte(secureCookieHashLabel), secretKey...))
	blockKey := sha256.Sum256(append([]byte(secureCookieBlockKey), secretKey...))

	// Expiry travels inside the sealed session token.
	cookies := securecookie.New(hashKey[:], blockKey[:]).
		MaxAge(0).
		SetSerializer(securecookie.NopEncoder{})
	return &secureCookieCodec{cookies: cookies}, nil
}

func (codec *secureCookieCodec) cookieName(purpose string) (string, error) {
	if codec == nil || codec.cookies == nil {
		return "", errSecureCookieCodecMissing
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return "", errSecureCookiePurpose
	}
	return secureCookieNameLabel + purpose, nil
}

func (codec *secureCookieCodec) seal(purpose string, plaintext []byte) (string, error) {
	name, err := codec.cookieName(purpose)
	if err != nil {
		return "", err
	}

	encoded, err := codec.cookies.Encode(name, plaintext)
	if err != nil {
		return "", err
	}
	return secureCookieVersion + "." + encoded, nil
}

func (codec *secureCookieCodec) open(purpose string, rawValue string) ([]byte, error) {
	name, err := codec.cookieName(purpose)
	if err != nil {
		return nil, err
	}

	version, encoded, found := strings.Cut(strings.TrimSpace(rawValue), ".")
	if !found || version != secureCookieVersion || encoded == "" {
		return nil, errInvalidSecureCookieValue
	}

	var plaintext []byte
	if err := codec.cookies.Decode(name, encoded, &plaintext); err != nil {
		return nil, errInvalidSecureCookieValue
	}
	return plaintext, nil
}
