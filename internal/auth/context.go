package auth

import "context"

type ctxKey string

const userInfoCtxKey = ctxKey("userInfo")

// UserInfo is the resolved identity of the caller, derived from a validated
// token. Services take it as an explicit argument; there is no ambient
// per-service identity state.
type UserInfo struct {
	UserID uint
	Email  string
	Name   string
}

// Valid reports whether the identity refers to a real user.
func (u UserInfo) Valid() bool { return u.UserID != 0 }

// WithUserInfo stores the identity in the context.
func WithUserInfo(ctx context.Context, info UserInfo) context.Context {
	return context.WithValue(ctx, userInfoCtxKey, info)
}

// UserInfoFromContext extracts the identity set by the auth middleware.
func UserInfoFromContext(ctx context.Context) (UserInfo, bool) {
	v := ctx.Value(userInfoCtxKey)
	if v == nil {
		return UserInfo{}, false
	}
	info, ok := v.(UserInfo)
	return info, ok && info.Valid()
}
