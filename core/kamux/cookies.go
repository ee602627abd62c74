package kamux

import (
	"net/http"
	"time"
)

// COOKIE_EXPIRE global cookie lifetime
var COOKIE_EXPIRE = 7 * 24 * time.Hour

// SetCookie set cookie given key and value
func (c *Context) SetCookie(key, value string) {
	http.SetCookie(c.ResponseWriter, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(COOKIE_EXPIRE),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetCookie get cookie with specific key
func (c *Context) GetCookie(key string) (string, error) {
	v, err := c.Request.Cookie(key)
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

// DeleteCookie delete cookie with specific key
func (c *Context) DeleteCookie(key string) {
	http.SetCookie(c.ResponseWriter, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}
