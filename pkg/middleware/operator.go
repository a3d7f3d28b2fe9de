package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Operator tags each request with the operator identity used in audit logs
// and attachment uploads. Header wins; the cookie keeps dev sessions sticky.
func Operator() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			op := c.Request().Header.Get("X-Operator-Id")
			if op == "" {
				if ck, err := c.Cookie("OPERATOR_ID"); err == nil {
					op = ck.Value
				}
			}
			if op == "" {
				if q := c.QueryParam("operator"); q != "" {
					c.SetCookie(&http.Cookie{Name: "OPERATOR_ID", Value: q, Path: "/"})
					op = q
				} else {
					op = "OP_DEV_DEFAULT"
					c.SetCookie(&http.Cookie{Name: "OPERATOR_ID", Value: op, Path: "/"})
				}
			}
			c.Set("operator", op)
			return next(c)
		}
	}
}
