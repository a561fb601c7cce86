package vorpal

import (
	"context"

	"google.golang.org/grpc"
)

// WorkerServiceClient is the client API for WorkerService.
type WorkerServiceClient interface {
	Build(ctx context.Context, in *ArtifactBuildRequest, opts ...grpc.CallOption) (WorkerService_BuildClient, error)
}

type workerServiceClient struct{ cc grpc.ClientConnInterface }

// NewWorkerServiceClient constructs a client bound to cc.
func NewWorkerServiceClient(cc grpc.ClientConnInterface) WorkerServiceClient {
	return &workerServiceClient{cc}
}

func (c *workerServiceClient) Build(ctx context.Context, in *ArtifactBuildRequest, opts ...grpc.CallOption) (WorkerService_BuildClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &workerServiceServiceDesc.Streams[0], "/vorpal.WorkerService/Build", opts...)
	if err != nil {
		return nil, err
	}
	x := &workerServiceBuildClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// WorkerService_BuildClient is the receive side of Build's log-line
// response stream.
type WorkerService_BuildClient interface {
	Recv() (*ArtifactBuildResponse, error)
	grpc.ClientStream
}

type workerServiceBuildClient struct{ grpc.ClientStream }

func (x *workerServiceBuildClient) Recv() (*ArtifactBuildResponse, error) {
	m := new(ArtifactBuildResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WorkerServiceServer is the server API for WorkerService.
type WorkerServiceServer interface {
	Build(*ArtifactBuildRequest, WorkerService_BuildServer) error
}

// WorkerService_BuildServer is the send side of Build's response stream.
type WorkerService_BuildServer interface {
	Send(*ArtifactBuildResponse) error
	grpc.ServerStream
}

type workerServiceBuildServer struct{ grpc.ServerStream }

func (x *workerServiceBuildServer) Send(m *ArtifactBuildResponse) error {
	return x.ServerStream.SendMsg(m)
}

func workerServiceBuildHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ArtifactBuildRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(WorkerServiceServer).Build(m, &workerServiceBuildServer{stream})
}

// RegisterWorkerServiceServer registers srv on s.
func RegisterWorkerServiceServer(s grpc.ServiceRegistrar, srv WorkerServiceServer) {
	s.RegisterService(&workerServiceServiceDesc, srv)
}

var workerServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "vorpal.WorkerService",
	HandlerType: (*WorkerServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "Build", Handler: workerServiceBuildHandler, ServerStreams: true},
	},
	Metadata: "vorpal.proto",
}
