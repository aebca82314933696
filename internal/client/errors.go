package client

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/harrylevesque/starseeker/internal/models"
)

// Message turns any client error into text fit to show a user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var he *HTTPError
	var ve *models.ValidationError
	var ne net.Error
	switch {
	case errors.As(err, &he):
		switch he.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "The StarSeeker service rejected our API key."
		case http.StatusNotFound:
			return "Nothing was found for that request."
		}
		if he.Status >= 500 {
			return "The StarSeeker service is having trouble. Please try again."
		}
		return he.Error()
	case errors.As(err, &ve):
		return "The StarSeeker service sent data we could not understand."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.As(err, &ne):
		return "Could not reach the StarSeeker service. Check your connection and try again."
	}
	return err.Error()
}

// Retryable reports whether repeating the request may succeed.
func Retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500 || he.Status == http.StatusTooManyRequests
	}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
