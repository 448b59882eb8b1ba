package sessions

// Note the browser application may depend on some of these values, changing them will cause breaking changes
const (
	SessionCookieName = "_bugreporter_session"
	SessionCtxKey     = "bugreporter_session"
)
