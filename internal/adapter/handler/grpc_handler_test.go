package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newGRPCClient(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer()
	RegisterInventoryServer(srv, NewGRPCHandler(newInventory(t), nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	resp := new(structpb.Struct)
	err = conn.Invoke(context.Background(), FullMethod(method), req, resp)
	return resp, err
}

func TestGRPC_Scenario(t *testing.T) {
	conn := newGRPCClient(t)

	resp, err := invoke(t, conn, "AddGelato", map[string]any{"location": "-18", "item": "Pistachio", "quantity": 4})
	require.NoError(t, err)
	assert.Equal(t, "4", resp.GetFields()["quantity"].GetStringValue())

	resp, err = invoke(t, conn, "AddGelato", map[string]any{"location": "-18", "item": "Pistachio", "quantity": "3"})
	require.NoError(t, err)
	assert.Equal(t, "7", resp.GetFields()["quantity"].GetStringValue())

	resp, err = invoke(t, conn, "UseGelato", map[string]any{"location": "-18", "item": "Pistachio", "quantity": 10})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.GetFields()["quantity"].GetStringValue())

	resp, err = invoke(t, conn, "SwitchFreezer", map[string]any{"from": "-18", "to": "-12", "item": "Pistachio"})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.GetFields()["moved"].GetStringValue())

	resp, err = invoke(t, conn, "ListContents", map[string]any{"location": "-12"})
	require.NoError(t, err)
	items := resp.GetFields()["items"].GetListValue().GetValues()
	require.Len(t, items, 1)
	assert.Equal(t, "Pistachio", items[0].GetStructValue().GetFields()["item"].GetStringValue())

	resp, err = invoke(t, conn, "RefillSuggestions", map[string]any{})
	require.NoError(t, err)
	suggestions := resp.GetFields()["suggestions"].GetStructValue().AsMap()
	assert.Equal(t, map[string]any{"-12": []any{"Pistachio"}}, suggestions)

	resp, err = invoke(t, conn, "ClearFreezer", map[string]any{"location": "-12"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.GetFields()["rows"].GetNumberValue())

	resp, err = invoke(t, conn, "DeleteFreezer", map[string]any{"location": "-12"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.GetFields()["rows"].GetNumberValue())
}

func TestGRPC_StatusCodes(t *testing.T) {
	conn := newGRPCClient(t)

	tests := []struct {
		name   string
		method string
		fields map[string]any
		code   codes.Code
	}{
		{name: "bad quantity", method: "AddGelato", fields: map[string]any{"location": "-18", "item": "Mango", "quantity": "lots"}, code: codes.InvalidArgument},
		{name: "negative quantity", method: "UseGelato", fields: map[string]any{"location": "-18", "item": "Mango", "quantity": -1}, code: codes.InvalidArgument},
		{name: "unknown freezer", method: "DeleteFreezer", fields: map[string]any{"location": "-80"}, code: codes.InvalidArgument},
		{name: "use missing flavor", method: "UseGelato", fields: map[string]any{"location": "-18", "item": "Mango", "quantity": 1}, code: codes.NotFound},
		{name: "clear empty freezer", method: "ClearFreezer", fields: map[string]any{"location": "-18"}, code: codes.NotFound},
		{name: "bad threshold", method: "RefillSuggestions", fields: map[string]any{"threshold": "x"}, code: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.method, tt.fields)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}
