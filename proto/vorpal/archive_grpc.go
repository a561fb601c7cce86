package vorpal

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ArchiveServiceClient is the client API for ArchiveService (spec.md §6).
type ArchiveServiceClient interface {
	Check(ctx context.Context, in *ArchivePullRequest, opts ...grpc.CallOption) (*ArchiveResponse, error)
	Pull(ctx context.Context, in *ArchivePullRequest, opts ...grpc.CallOption) (ArchiveService_PullClient, error)
	Push(ctx context.Context, opts ...grpc.CallOption) (ArchiveService_PushClient, error)
}

type archiveServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewArchiveServiceClient constructs a client bound to cc, always
// negotiating the vorpal-json content-subtype (codec.go).
func NewArchiveServiceClient(cc grpc.ClientConnInterface) ArchiveServiceClient {
	return &archiveServiceClient{cc}
}

func (c *archiveServiceClient) Check(ctx context.Context, in *ArchivePullRequest, opts ...grpc.CallOption) (*ArchiveResponse, error) {
	out := new(ArchiveResponse)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/vorpal.ArchiveService/Check", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *archiveServiceClient) Pull(ctx context.Context, in *ArchivePullRequest, opts ...grpc.CallOption) (ArchiveService_PullClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &archiveServiceServiceDesc.Streams[0], "/vorpal.ArchiveService/Pull", opts...)
	if err != nil {
		return nil, err
	}
	x := &archiveServicePullClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ArchiveService_PullClient is the receive side of Pull's response stream.
type ArchiveService_PullClient interface {
	Recv() (*ArchivePullResponse, error)
	grpc.ClientStream
}

type archiveServicePullClient struct{ grpc.ClientStream }

func (x *archiveServicePullClient) Recv() (*ArchivePullResponse, error) {
	m := new(ArchivePullResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *archiveServiceClient) Push(ctx context.Context, opts ...grpc.CallOption) (ArchiveService_PushClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &archiveServiceServiceDesc.Streams[1], "/vorpal.ArchiveService/Push", opts...)
	if err != nil {
		return nil, err
	}
	return &archiveServicePushClient{stream}, nil
}

// ArchiveService_PushClient is the send side of Push's request stream.
type ArchiveService_PushClient interface {
	Send(*ArchivePushRequest) error
	CloseAndRecv() (*ArchiveResponse, error)
	grpc.ClientStream
}

type archiveServicePushClient struct{ grpc.ClientStream }

func (x *archiveServicePushClient) Send(m *ArchivePushRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *archiveServicePushClient) CloseAndRecv() (*ArchiveResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(ArchiveResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ArchiveServiceServer is the server API for ArchiveService.
type ArchiveServiceServer interface {
	Check(context.Context, *ArchivePullRequest) (*ArchiveResponse, error)
	Pull(*ArchivePullRequest, ArchiveService_PullServer) error
	Push(ArchiveService_PushServer) error
}

// UnimplementedArchiveServiceServer embeds into a server implementation to
// satisfy ArchiveServiceServer for methods not yet overridden.
type UnimplementedArchiveServiceServer struct{}

func (UnimplementedArchiveServiceServer) Check(context.Context, *ArchivePullRequest) (*ArchiveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Check not implemented")
}
func (UnimplementedArchiveServiceServer) Pull(*ArchivePullRequest, ArchiveService_PullServer) error {
	return status.Error(codes.Unimplemented, "method Pull not implemented")
}
func (UnimplementedArchiveServiceServer) Push(ArchiveService_PushServer) error {
	return status.Error(codes.Unimplemented, "method Push not implemented")
}

// ArchiveService_PullServer is the send side of Pull's response stream.
type ArchiveService_PullServer interface {
	Send(*ArchivePullResponse) error
	grpc.ServerStream
}

type archiveServicePullServer struct{ grpc.ServerStream }

func (x *archiveServicePullServer) Send(m *ArchivePullResponse) error {
	return x.ServerStream.SendMsg(m)
}

// ArchiveService_PushServer is the receive side of Push's request stream.
type ArchiveService_PushServer interface {
	Recv() (*ArchivePushRequest, error)
	SendAndClose(*ArchiveResponse) error
	grpc.ServerStream
}

type archiveServicePushServer struct{ grpc.ServerStream }

func (x *archiveServicePushServer) Recv() (*ArchivePushRequest, error) {
	m := new(ArchivePushRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *archiveServicePushServer) SendAndClose(m *ArchiveResponse) error {
	return x.ServerStream.SendMsg(m)
}

func archiveServiceCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArchivePullRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArchiveServiceServer).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/vorpal.ArchiveService/Check"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ArchiveServiceServer).Check(ctx, req.(*ArchivePullRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func archiveServicePullHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ArchivePullRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ArchiveServiceServer).Pull(m, &archiveServicePullServer{stream})
}

func archiveServicePushHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ArchiveServiceServer).Push(&archiveServicePushServer{stream})
}

// RegisterArchiveServiceServer registers srv on s.
func RegisterArchiveServiceServer(s grpc.ServiceRegistrar, srv ArchiveServiceServer) {
	s.RegisterService(&archiveServiceServiceDesc, srv)
}

var archiveServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "vorpal.ArchiveService",
	HandlerType: (*ArchiveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: archiveServiceCheckHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Pull", Handler: archiveServicePullHandler, ServerStreams: true},
		{StreamName: "Push", Handler: archiveServicePushHandler, ClientStreams: true},
	},
	Metadata: "vorpal.proto",
}
