package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ReportingServiceName = "encuestas.reporting.v1.Reporting"

	GetSummaryMethod          = "/" + ReportingServiceName + "/GetSummary"
	GetCafeteriaRankingMethod = "/" + ReportingServiceName + "/GetCafeteriaRanking"
	ListCommentsMethod        = "/" + ReportingServiceName + "/ListComments"
)

// ReportingServer is the server API of the reporting service. Requests and
// responses are generic Structs so no generated code is needed.
type ReportingServer interface {
	GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCafeteriaRanking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type reportingCall func(srv ReportingServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call reportingCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReportingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReportingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReportingServiceDesc describes the reporting service for grpc.Server.
var ReportingServiceDesc = grpc.ServiceDesc{
	ServiceName: ReportingServiceName,
	HandlerType: (*ReportingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSummary",
			Handler:    unaryHandler(GetSummaryMethod, ReportingServer.GetSummary),
		},
		{
			MethodName: "GetCafeteriaRanking",
			Handler:    unaryHandler(GetCafeteriaRankingMethod, ReportingServer.GetCafeteriaRanking),
		},
		{
			MethodName: "ListComments",
			Handler:    unaryHandler(ListCommentsMethod, ReportingServer.ListComments),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterReportingServer(s grpc.ServiceRegistrar, srv ReportingServer) {
	s.RegisterService(&ReportingServiceDesc, srv)
}

// ReportingClient is the client side of ReportingServiceDesc.
type ReportingClient struct {
	cc grpc.ClientConnInterface
}

func NewReportingClient(cc grpc.ClientConnInterface) *ReportingClient {
	return &ReportingClient{cc: cc}
}

func (c *ReportingClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportingClient) GetSummary(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetSummaryMethod, req, opts...)
}

func (c *ReportingClient) GetCafeteriaRanking(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetCafeteriaRankingMethod, req, opts...)
}

func (c *ReportingClient) ListComments(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListCommentsMethod, req, opts...)
}
