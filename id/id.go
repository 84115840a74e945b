package id

import "github.com/rs/xid"

func Generate() string {
	return xid.New().String()
}

func Valid(s string) bool {
	parsed, err := xid.FromString(s)
	if err != nil {
		return false
	}
	return !parsed.IsNil() && !parsed.IsZero()
}
