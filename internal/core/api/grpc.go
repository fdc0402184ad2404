package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The transform service carries raw JSON in a BytesValue both ways, so it
// needs no generated code: the descriptor below is what protoc-gen-go-grpc
// would emit for
//
//	service TransformService {
//	  rpc Transform(google.protobuf.BytesValue) returns (google.protobuf.BytesValue);
//	}
const (
	TransformServiceName = "jsonforge.transform.v1.TransformService"
	TransformMethod      = "/" + TransformServiceName + "/Transform"
)

// RunIDHeader carries the run ID in gRPC response headers and HTTP
// responses.
const RunIDHeader = "x-run-id"

// TransformServer is the server side of the transform service.
type TransformServer interface {
	Transform(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// TransformServiceDesc describes the transform service to grpc.
var TransformServiceDesc = grpc.ServiceDesc{
	ServiceName: TransformServiceName,
	HandlerType: (*TransformServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transform",
			Handler:    transformHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jsonforge/transform/v1/transform.proto",
}

func transformHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServer).Transform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransformMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformServer).Transform(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterTransformServer registers srv with s.
func RegisterTransformServer(s grpc.ServiceRegistrar, srv TransformServer) {
	s.RegisterService(&TransformServiceDesc, srv)
}

// GRPCHandler serves the transform service from a TransformService.
type GRPCHandler struct {
	svc *TransformService
}

// NewGRPCHandler adapts svc to TransformServer.
func NewGRPCHandler(svc *TransformService) *GRPCHandler {
	return &GRPCHandler{svc: svc}
}

func (h *GRPCHandler) Transform(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	out, err := h.svc.Transform(ctx, in.GetValue())
	if hdrErr := grpc.SetHeader(ctx, metadata.Pairs(RunIDHeader, string(out.RunID))); hdrErr != nil {
		h.svc.logger.Debug("cannot set run id header", "run_id", out.RunID, "error", hdrErr)
	}
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return wrapperspb.Bytes(out.Document), nil
}

// TransformClient calls a remote transform service.
type TransformClient struct {
	cc grpc.ClientConnInterface
}

// NewTransformClient creates a client on cc.
func NewTransformClient(cc grpc.ClientConnInterface) *TransformClient {
	return &TransformClient{cc: cc}
}

// Transform sends doc and returns the transformed document.
func (c *TransformClient) Transform(ctx context.Context, doc []byte, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, TransformMethod, wrapperspb.Bytes(doc), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
