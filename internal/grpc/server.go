package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"actioncore/internal/expression"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "actioncore.ExpressionService"

const (
	buildTreeMethod = "/" + ServiceName + "/BuildTree"
	editMethod      = "/" + ServiceName + "/Edit"
)

// ExpressionServer is the server API of the expression service. Requests and replies are
// google.protobuf.Struct messages.
//
//	BuildTree {expression}                    -> {expression, tree, outline}
//	Edit      {expression, id, action, text}  -> {expression, found}
type ExpressionServer interface {
	BuildTree(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Edit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct{}

func NewServer() *Server {
	return &Server{}
}

func (s *Server) BuildTree(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	parsed, err := expression.Parse(stringField(req, "expression"))
	if err != nil {
		return nil, toStatus(err)
	}

	tree := expression.BuildTree(parsed)
	return toStruct(map[string]any{
		"expression": parsed.Expression,
		"tree":       tree.Root,
		"outline":    tree.Outline(),
	})
}

func (s *Server) Edit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	result, found, err := expression.Edit(
		stringField(req, "expression"),
		id,
		expression.EditAction(stringField(req, "action")),
		stringField(req, "text"),
	)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"expression": result,
		"found":      found,
	})
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[name].GetStringValue()
}

// toStruct converts a JSON-tagged value through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode reply: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode reply: %v", err)
	}
	return structpb.NewStruct(m)
}

func toStatus(err error) error {
	var perr *expression.ParseError
	if errors.As(err, &perr) {
		return status.Errorf(codes.InvalidArgument, "%s (position %d)", perr.Error(), perr.Pos)
	}
	return status.Error(codes.InvalidArgument, err.Error())
}

// ExpressionServiceDesc describes the expression service for grpc.Server.RegisterService.
var ExpressionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpressionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BuildTree", Handler: buildTreeHandler},
		{MethodName: "Edit", Handler: editHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "actioncore/expression.proto",
}

func RegisterExpressionServer(s grpc.ServiceRegistrar, srv ExpressionServer) {
	s.RegisterService(&ExpressionServiceDesc, srv)
}

func buildTreeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExpressionServer).BuildTree(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: buildTreeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExpressionServer).BuildTree(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func editHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExpressionServer).Edit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: editMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExpressionServer).Edit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ExpressionClient calls the expression service.
type ExpressionClient struct {
	cc grpc.ClientConnInterface
}

func NewExpressionClient(cc grpc.ClientConnInterface) *ExpressionClient {
	return &ExpressionClient{cc: cc}
}

func (c *ExpressionClient) BuildTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, buildTreeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExpressionClient) Edit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, editMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// loggingInterceptor logs every unary call with its status code and duration.
func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("gRPC call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}

// New returns a gRPC server with the expression service registered.
func New(log *zap.Logger) *grpc.Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	RegisterExpressionServer(s, NewServer())
	return s
}

// StartServer serves s on addr until s is stopped.
func StartServer(addr string, s *grpc.Server, log *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	log.Info("gRPC server listening", zap.String("address", addr))

	return s.Serve(lis)
}
