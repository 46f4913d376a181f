package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/messaging"
)

type messagingApi struct {
	svc      messaging.ServiceInterface
	formSvc  formation.ServiceInterface
	validate *validator.Validate
}

func registerMessagingAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := messagingApi{
		svc:      deps.MessageSvc,
		formSvc:  deps.FormSvc,
		validate: deps.Validate,
	}

	app.POST("/sendMessage", api.send, jwt)
	app.POST("/replyMessage", api.reply, jwt)
	app.GET("/getMessages/:userId", api.list, jwt, ownerMiddleware("userId"))

	app.POST("/proposeFormation", api.proposeFormation, jwt, roleMiddleware(account.RoleTrainer))
}

// Handlers

func (api *messagingApi) send(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data SendMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), claims.Subject, data.RecipientID, data.Type, data.Message)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) reply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data ReplyMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplyMessageRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reply, err := api.svc.Reply(ctx.Request().Context(), data.MessageID, claims.Subject, data.Message)
	if err != nil {
		return errors.Wrap(err, "replying to message")
	}
	return ctx.JSON(http.StatusCreated, reply)
}

func (api *messagingApi) list(ctx echo.Context) error {
	msgs, err := api.svc.ListMessages(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	if msgs == nil {
		msgs = []messaging.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messagingApi) proposeFormation(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data ProposeFormationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProposeFormationRequest")
	}

	nf := formation.NewFormation{
		TrainerID: claims.Subject,
		Name:      data.Name,
		Year:      data.Year,
	}
	if nf.Year == 0 {
		nf.Year = time.Now().UTC().Year()
	}
	if err := nf.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.formSvc.Propose(ctx.Request().Context(), nf)
	if err != nil {
		return errors.Wrap(err, "proposing formation")
	}
	return ctx.JSON(http.StatusCreated, f)
}

type (
	SendMessageRequest struct {
		RecipientID string `json:"recipientId" validate:"required"`
		Type        string `json:"type"`
		Message     string `json:"message" validate:"required"`
	}

	ReplyMessageRequest struct {
		MessageID string `json:"messageId" validate:"required"`
		Message   string `json:"message" validate:"required"`
	}

	ProposeFormationRequest struct {
		Name string `json:"name"`
		Year int    `json:"year"`
	}
)

func (sr *SendMessageRequest) Validate(validate *validator.Validate) error {
	sr.RecipientID = core.CleanString(sr.RecipientID)
	sr.Type = core.CleanString(sr.Type)
	sr.Message = core.CleanString(sr.Message)
	return validate.Struct(sr)
}

func (rr *ReplyMessageRequest) Validate(validate *validator.Validate) error {
	rr.MessageID = core.CleanString(rr.MessageID)
	rr.Message = core.CleanString(rr.Message)
	return validate.Struct(rr)
}
