package studia

import (
	"context"

	"seatwatch/internal/components/telemetry"
)

// Source reads the catalog with a new session on every fetch, so no cookies outlive a check.
type Source struct {
	opts  Options
	creds Credentials
}

func NewSource(opts Options, creds Credentials) Source {
	return Source{opts: opts, creds: creds}
}

// Fetch logs in and walks the catalog, only a failed login is returned as an error.
// `tel` is scoped to this fetch.
func (s Source) Fetch(ctx context.Context, tel telemetry.API) (FetchResult, error) {
	session, err := Login(ctx, s.opts, s.creds, tel)
	if err != nil {
		return FetchResult{}, err
	}
	return session.FetchAll(ctx), nil
}
