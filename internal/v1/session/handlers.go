// Package session - handlers.go
//
// Shared infrastructure for the command handlers defined across this
// package (methods.go, admin_helpers.go, handlers_webrtc.go): payload
// type assertion and per-call logging. Handlers assume the room's lock
// is already held by the router.
package session

import (
	"context"
	"encoding/json"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

// logHelper logs a handler invocation, at warn level when the payload
// failed to decode into its expected type.
func logHelper(ok bool, userID UserIDType, methodName string, roomID RoomIDType) {
	if ok {
		logging.Info(context.Background(), "client called method",
			zap.String("user_id", string(userID)), zap.String("room_id", string(roomID)), zap.String("method", methodName))
	} else {
		logging.Warn(context.Background(), "client called method with unparseable payload",
			zap.String("user_id", string(userID)), zap.String("room_id", string(roomID)), zap.String("method", methodName))
	}
}

// assertPayload type-asserts a message payload to T. Inbound payloads
// usually arrive as json.RawMessage (decoded lazily so the router
// doesn't need to know every handler's payload shape); test code may
// instead pass a pre-built T directly.
func assertPayload[T any](payload any) (T, bool) {
	var result T

	if raw, ok := payload.(json.RawMessage); ok {
		if err := json.Unmarshal(raw, &result); err != nil {
			logging.Error(context.Background(), "failed to unmarshal payload", zap.Error(err))
			return result, false
		}
		return result, true
	}

	if typed, ok := payload.(T); ok {
		return typed, true
	}

	return result, false
}
