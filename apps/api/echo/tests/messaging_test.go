package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/messaging"
)

func Test_messagingApi_send(t *testing.T) {
	env := setup(t)
	alice := env.createTeacher(t, "alice", "alice@test.cd")
	bob := env.createTeacher(t, "bob", "bob@test.cd")
	aliceToken := env.getToken(t, alice)

	t.Run("needs a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/sendMessage", marchallObj(t, map[string]string{
			"recipientId": bob.ID, "type": "question", "message": "hello",
		}))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("sender comes from the token", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/sendMessage", aliceToken, marchallObj(t, map[string]string{
			"recipientId": bob.ID, "type": "question", "message": "When is the exam?",
		}))
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var msg messaging.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
		assert.Equal(t, alice.ID, msg.SenderID)
		assert.Equal(t, bob.ID, msg.RecipientID)
		assert.Empty(t, msg.Replies)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/sendMessage", aliceToken, marchallObj(t, map[string]string{
			"recipientId": "no-such-id", "message": "hello?",
		}))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "recipient not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/sendMessage", aliceToken, marchallObj(t, map[string]string{
			"recipientId": bob.ID,
		}))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_messagingApi_replyAndList(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	alice := env.createTeacher(t, "alice", "alice@test.cd")
	bob := env.createTeacher(t, "bob", "bob@test.cd")
	admin := env.createAdmin(t, "boss", "boss@test.cd")

	msg, err := env.msgSvc.Send(ctx, alice.ID, bob.ID, "question", "When is the exam?")
	require.NoError(t, err)

	t.Run("recipient replies", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/replyMessage", env.getToken(t, bob), marchallObj(t, map[string]string{
			"messageId": msg.ID, "message": "Next Monday.",
		}))
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var reply messaging.Reply
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
		assert.Equal(t, msg.ID, reply.MessageID)
		assert.Equal(t, bob.ID, reply.SenderID)
	})

	t.Run("unknown message", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/replyMessage", env.getToken(t, bob), marchallObj(t, map[string]string{
			"messageId": "no-such-id", "message": "hello?",
		}))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("owner lists their messages", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/getMessages/"+alice.ID, env.getToken(t, alice))
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []messaging.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
		require.Len(t, msgs, 1)
		require.Len(t, msgs[0].Replies, 1)
		assert.Equal(t, "Next Monday.", msgs[0].Replies[0].Body)
	})

	t.Run("others may not", func(t *testing.T) {
		carol := env.createTeacher(t, "carol", "carol@test.cd")
		req, rec := newAuthRequest(http.MethodGet, "/getMessages/"+alice.ID, env.getToken(t, carol))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admins may", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/getMessages/"+alice.ID, env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_messagingApi_proposeFormation(t *testing.T) {
	env := setup(t)
	trainer := env.createTrainer(t, "coach", "coach@test.cd")
	teacher := env.createTeacher(t, "prof", "prof@test.cd")
	trainerToken := env.getToken(t, trainer)
	body := marchallObj(t, map[string]string{"name": "Intro to Go"})

	t.Run("trainers only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/proposeFormation", env.getToken(t, teacher), body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("year defaults to the current one", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/proposeFormation", trainerToken, body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var f formation.Formation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
		assert.Equal(t, trainer.ID, f.TrainerID)
		assert.Equal(t, time.Now().UTC().Year(), f.Year)
	})

	t.Run("duplicate name and year conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/proposeFormation", trainerToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "a formation with this name already exists for this year"})}
		checkCodeAndData(t, tt, rec)
	})
}
