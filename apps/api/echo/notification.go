package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/notification"
)

type notificationApi struct {
	svc      notification.ServiceInterface
	validate *validator.Validate
}

func registerNotificationAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := notificationApi{
		svc:      deps.NotifSvc,
		validate: deps.Validate,
	}

	app.POST("/postNews", api.postNews, jwt, roleMiddleware(account.RoleAdmin))
	app.GET("/getNews", api.news)

	app.GET("/getNotifications/:userId", api.list, jwt, ownerMiddleware("userId"))
	app.PUT("/notifications/:id/read", api.markRead, jwt)
	app.DELETE("/clearNotifications/:userId", api.clear, jwt, ownerMiddleware("userId"))
}

// Handlers

func (api *notificationApi) postNews(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data PostNewsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PostNewsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	news, err := api.svc.BroadcastNews(ctx.Request().Context(), claims.Subject, data.Title, data.Content)
	if err != nil {
		return errors.Wrap(err, "broadcasting news")
	}
	return ctx.JSON(http.StatusCreated, news)
}

func (api *notificationApi) news(ctx echo.Context) error {
	news, err := api.svc.QueryNews(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	if news == nil {
		news = []notification.News{}
	}
	return ctx.JSON(http.StatusOK, news)
}

func (api *notificationApi) list(ctx echo.Context) error {
	notifs, err := api.svc.QueryByAccount(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	notif, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) clear(ctx echo.Context) error {
	if err := api.svc.ClearAll(ctx.Request().Context(), ctx.Param("userId")); err != nil {
		return errors.Wrap(err, "clearing notifications")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type PostNewsRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (pr *PostNewsRequest) Validate(validate *validator.Validate) error {
	pr.Title = core.CleanString(pr.Title)
	pr.Content = core.CleanString(pr.Content)
	return validate.Struct(pr)
}
