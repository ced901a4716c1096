package ws

import (
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"wavelink/auth"
	apperrors "wavelink/errors"
	"wavelink/mocks"
	"wavelink/runtime"
)

// A limiter backend fault must reject the send without reaching the
// store. The bucket and the failover never fail, so the limiter is
// mocked here.
func TestGateway_LimiterFaultRejectsSend(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify("stub-token").Return(auth.Claims{UserID: "alice"}, nil)

	limiter := mocks.NewMockLimiter(ctrl)
	limiter.EXPECT().Allow(gomock.Any(), "alice").
		Return(false, errors.New("dial tcp: connection refused"))

	// No Send expectation: the service must never be reached.
	conversations := mocks.NewMockIConversationService(ctrl)

	registry := runtime.NewRegistry()
	gateway := NewGateway(
		slog.Default(), KindDirect, verifier, conversations, limiter,
		registry, runtime.NewBroadcaster(registry, slog.Default()), 64,
	)
	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=stub-token", nil)
	req.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })

	recipient := "bob"
	sendFrame(t, conn, EventMessage, MessagePayload{RecipientID: &recipient, Content: "hi"})

	frame := readFrame(t, conn)
	req.Equal(EventError, frame.Event)
	req.Equal(apperrors.CodeInternal, decodeData[ErrorFrame](t, frame).Code)
}
