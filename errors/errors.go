package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrNoAccessToken    = fmt.Errorf("no access token")
	ErrMissingUserClaim = fmt.Errorf("token has no user_id claim")
)
