package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SessionCookieName はゲストセッションIDを保持するクッキー名
const SessionCookieName = "studio_session"

// SessionHeaderName はAPIクライアントがセッションIDを渡すヘッダー名
const SessionHeaderName = "X-Session-ID"

// sessionIDKey は echo.Context に格納するキー
const sessionIDKey = "session_id"

// SetupMiddleware は共通ミドルウェアを設定する
func SetupMiddleware(e *echo.Echo) {
	// リクエストID
	e.Use(middleware.RequestID())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	// パニックリカバリー
	e.Use(middleware.Recover())

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		AllowHeaders: []string{echo.HeaderContentType, SessionHeaderName},
	}))
}

// SessionID はゲストセッションIDを解決するミドルウェア
// ヘッダー → クッキーの順に探し、どちらもなければ発行してクッキーに載せる
func SessionID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := c.Request().Header.Get(SessionHeaderName)
			if sessionID == "" {
				if cookie, err := c.Cookie(SessionCookieName); err == nil {
					sessionID = cookie.Value
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(sessionIDKey, sessionID)
			return next(c)
		}
	}
}

// SessionIDFrom はコンテキストからセッションIDを取り出す
func SessionIDFrom(c echo.Context) string {
	if v, ok := c.Get(sessionIDKey).(string); ok {
		return v
	}
	return ""
}
