package vorpal

import (
	"context"

	"google.golang.org/grpc"
)

// AgentServiceClient is the client API for AgentService.
type AgentServiceClient interface {
	PrepareArtifact(ctx context.Context, in *Artifact, opts ...grpc.CallOption) (AgentService_PrepareArtifactClient, error)
}

type agentServiceClient struct{ cc grpc.ClientConnInterface }

// NewAgentServiceClient constructs a client bound to cc.
func NewAgentServiceClient(cc grpc.ClientConnInterface) AgentServiceClient {
	return &agentServiceClient{cc}
}

func (c *agentServiceClient) PrepareArtifact(ctx context.Context, in *Artifact, opts ...grpc.CallOption) (AgentService_PrepareArtifactClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &agentServiceServiceDesc.Streams[0], "/vorpal.AgentService/PrepareArtifact", opts...)
	if err != nil {
		return nil, err
	}
	x := &agentServicePrepareArtifactClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// AgentService_PrepareArtifactClient is the receive side of
// PrepareArtifact's response stream.
type AgentService_PrepareArtifactClient interface {
	Recv() (*PrepareArtifactResponse, error)
	grpc.ClientStream
}

type agentServicePrepareArtifactClient struct{ grpc.ClientStream }

func (x *agentServicePrepareArtifactClient) Recv() (*PrepareArtifactResponse, error) {
	m := new(PrepareArtifactResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AgentServiceServer is the server API for AgentService.
type AgentServiceServer interface {
	PrepareArtifact(*Artifact, AgentService_PrepareArtifactServer) error
}

// AgentService_PrepareArtifactServer is the send side of PrepareArtifact's
// response stream.
type AgentService_PrepareArtifactServer interface {
	Send(*PrepareArtifactResponse) error
	grpc.ServerStream
}

type agentServicePrepareArtifactServer struct{ grpc.ServerStream }

func (x *agentServicePrepareArtifactServer) Send(m *PrepareArtifactResponse) error {
	return x.ServerStream.SendMsg(m)
}

func agentServicePrepareArtifactHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Artifact)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(AgentServiceServer).PrepareArtifact(m, &agentServicePrepareArtifactServer{stream})
}

// RegisterAgentServiceServer registers srv on s.
func RegisterAgentServiceServer(s grpc.ServiceRegistrar, srv AgentServiceServer) {
	s.RegisterService(&agentServiceServiceDesc, srv)
}

var agentServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "vorpal.AgentService",
	HandlerType: (*AgentServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "PrepareArtifact", Handler: agentServicePrepareArtifactHandler, ServerStreams: true},
	},
	Metadata: "vorpal.proto",
}
