// Package utils provides URL helpers for the short link service.
package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"go-shortlink/types"
)

var (
	ErrInvalidURL     = errors.New("invalid URL")
	ErrUnknownMode    = errors.New("unknown short URL mode")
	ErrMissingBaseURL = errors.New("base URL is required for fixed-base mode")
)

var validate = validator.New()

// ValidateURL checks that raw is a well-formed absolute URL with a scheme and a host.
func ValidateURL(raw string) error {
	if err := validate.Var(raw, "required,url"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// ShortURL derives the public short URL for id.
func ShortURL(mode types.ShortURLMode, baseURL, originalURL, id string) (string, error) {
	switch mode {
	case types.ShortURLModeMirrorOrigin:
		parsed, err := url.Parse(originalURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidURL, originalURL)
		}
		return parsed.Scheme + "://" + parsed.Host + "/" + id, nil
	case types.ShortURLModeFixedBase:
		if baseURL == "" {
			return "", ErrMissingBaseURL
		}
		return strings.TrimRight(baseURL, "/") + "/" + id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
