package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) *ExpressionClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New(zaptest.NewLogger(t))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewExpressionClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestBuildTree(t *testing.T) {
	client := newTestClient(t)

	out, err := client.BuildTree(context.Background(), mustStruct(t, map[string]any{
		"expression": "  last(/h/a)=1 and (last(/h/b)=2 or last(/h/c)=3)",
	}))
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "last(/h/a)=1 and (last(/h/b)=2 or last(/h/c)=3)", m["expression"])
	tree := m["tree"].(map[string]any)
	assert.Equal(t, "and", tree["operator"])
	elements := tree["elements"].([]any)
	require.Len(t, elements, 2)
	assert.Equal(t, "0_11", elements[0].(map[string]any)["id"])
	assert.Len(t, m["outline"], 5)
}

func TestBuildTree_ParseError(t *testing.T) {
	client := newTestClient(t)

	_, err := client.BuildTree(context.Background(), mustStruct(t, map[string]any{"expression": "last(/h/a)=1 and"}))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestEdit(t *testing.T) {
	client := newTestClient(t)

	out, err := client.Edit(context.Background(), mustStruct(t, map[string]any{
		"expression": "last(/h/a)=1",
		"id":         "0_11",
		"action":     "or",
		"text":       "last(/h/b)=2",
	}))
	require.NoError(t, err)
	assert.Equal(t, "last(/h/a)=1 or last(/h/b)=2", out.AsMap()["expression"])
	assert.Equal(t, true, out.AsMap()["found"])

	_, err = client.Edit(context.Background(), mustStruct(t, map[string]any{"expression": "last(/h/a)=1"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Edit(context.Background(), mustStruct(t, map[string]any{
		"expression": "last(/h/a)=1",
		"id":         "0_11",
		"action":     "xor",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_DirectCall(t *testing.T) {
	out, err := NewServer().Edit(context.Background(), mustStruct(t, map[string]any{
		"expression": "last(/h/a)=1",
		"id":         "9_9",
		"action":     "R",
	}))
	require.NoError(t, err)
	assert.Equal(t, false, out.AsMap()["found"])
	assert.Equal(t, "last(/h/a)=1", out.AsMap()["expression"])
}
