package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jmehdipour/eventlog/internal/service/accounts"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type provisionReq struct {
	Name  string
	Email string
}

// bindProvision reads optional name/email. Both are free text: numbers and
// booleans keep their literal text, null or absent becomes "". Only malformed
// JSON, or a top-level value that is neither object nor array, is rejected.
func bindProvision(c echo.Context) (provisionReq, error) {
	var req provisionReq
	body, err := readBody(c)
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, errors.New("trailing data after body")
	}
	switch x := v.(type) {
	case map[string]any:
		req.Name = freeText(x["name"])
		req.Email = freeText(x["email"])
	case []any:
		// no named members
	default:
		return req, errors.New("body must be an object or array")
	}
	return req, nil
}

func freeText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func provision(c echo.Context, svc *accounts.Service, source string) error {
	req, err := bindProvision(c)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json body"})
	}

	creds, err := svc.Provision(c.Request().Context(), source, req.Name, req.Email)
	if err != nil {
		log.Errorf("provision customer failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, creds)
}

func registerHandler(svc *accounts.Service, enabled bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !enabled {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "registration disabled"})
		}
		return provision(c, svc, "register")
	}
}

func createCustomerHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		return provision(c, svc, "admin")
	}
}

func listCustomersHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := svc.List(c.Request().Context())
		if err != nil {
			log.Errorf("list customers failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, list)
	}
}

func blockCustomerHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Block(c.Request().Context(), c.Param("copy_id")); err != nil {
			log.Errorf("block customer failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
}

func resetCustomerHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		creds, err := svc.ResetToken(c.Request().Context(), c.Param("copy_id"))
		if err != nil {
			log.Errorf("reset token failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, creds)
	}
}
