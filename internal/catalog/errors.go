package catalog

import (
	"errors"
	"net/http"

	"github.com/houhousishu/houhou/internal/remote"
)

// ErrInvalidCredentials is returned by the local login fallback. It always
// reaches callers wrapped in a *remote.RejectedError, so one error path
// handles both backends.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingID is returned when a record without an id is written locally.
var ErrMissingID = errors.New("record has no id")

// ErrInvalidInput marks content submitted with missing or malformed fields.
var ErrInvalidInput = errors.New("invalid input")

const localCredentialsDetail = "帳號密碼不正確 (展示模式)"

func invalidCredentials() error {
	return &remote.RejectedError{
		Status: http.StatusUnauthorized,
		Detail: localCredentialsDetail,
		Err:    ErrInvalidCredentials,
	}
}

// IsCredentialError reports whether err is a login failure that a form
// should show next to the credential fields.
func IsCredentialError(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) {
		return true
	}
	var rej *remote.RejectedError
	if errors.As(err, &rej) {
		return rej.Status == http.StatusUnauthorized || rej.Status == http.StatusForbidden
	}
	return false
}
