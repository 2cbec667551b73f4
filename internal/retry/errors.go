package retry

import (
	"errors"
	"net"
	"net/url"
	"syscall"

	"github.com/parmira/forensic"
)

// statusCoder is implemented by SDK errors that carry an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// IsTransient reports whether err is worth retrying. Categorized provider
// errors decide for themselves; anything else is retried only for rate
// limits, server errors and network-level failures. Decode failures and
// missing images are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, forensic.ErrDecode) || errors.Is(err, forensic.ErrNoImage) || errors.Is(err, forensic.ErrEmptyInput) {
		return false
	}

	var ce forensic.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == forensic.ErrorTransient
	}

	var sc statusCoder
	if errors.As(err, &sc) && forensic.CategorizeStatus(sc.StatusCode()) == forensic.ErrorTransient {
		return true
	}

	return isTransientNetworkError(err)
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}
	return false
}
