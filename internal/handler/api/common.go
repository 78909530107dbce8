package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"autoorderbot/internal/pkg/utils"
	"autoorderbot/internal/repository"
)

// Repos bundles the repositories used by the admin API handlers.
type Repos struct {
	User   *repository.UserRepository
	Order  *repository.OrderRepository
	Redeem *repository.RedeemCodeRepository
}

func respondOK(c echo.Context, obj interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": true,
		"obj":    obj,
	})
}

func respondErr(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]interface{}{
		"status": false,
		"msg":    msg,
	})
}

func pageParams(c echo.Context) (limit, page int) {
	limit = utils.ParseInt(c.QueryParam("limit"), 50)
	page = utils.ParseInt(c.QueryParam("page"), 1)
	return limit, page
}
