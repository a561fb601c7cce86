package vorpal

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ArtifactServiceClient is the client API for ArtifactService.
type ArtifactServiceClient interface {
	GetArtifact(ctx context.Context, in *ArtifactRequest, opts ...grpc.CallOption) (*Artifact, error)
	StoreArtifact(ctx context.Context, in *Artifact, opts ...grpc.CallOption) (*ArtifactResponse, error)
	GetArtifacts(ctx context.Context, in *ArtifactsRequest, opts ...grpc.CallOption) (*ArtifactsResponse, error)
}

type artifactServiceClient struct{ cc grpc.ClientConnInterface }

// NewArtifactServiceClient constructs a client bound to cc.
func NewArtifactServiceClient(cc grpc.ClientConnInterface) ArtifactServiceClient {
	return &artifactServiceClient{cc}
}

func (c *artifactServiceClient) GetArtifact(ctx context.Context, in *ArtifactRequest, opts ...grpc.CallOption) (*Artifact, error) {
	out := new(Artifact)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/vorpal.ArtifactService/GetArtifact", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) StoreArtifact(ctx context.Context, in *Artifact, opts ...grpc.CallOption) (*ArtifactResponse, error) {
	out := new(ArtifactResponse)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/vorpal.ArtifactService/StoreArtifact", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) GetArtifacts(ctx context.Context, in *ArtifactsRequest, opts ...grpc.CallOption) (*ArtifactsResponse, error) {
	out := new(ArtifactsResponse)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/vorpal.ArtifactService/GetArtifacts", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ArtifactServiceServer is the server API for ArtifactService.
type ArtifactServiceServer interface {
	GetArtifact(context.Context, *ArtifactRequest) (*Artifact, error)
	StoreArtifact(context.Context, *Artifact) (*ArtifactResponse, error)
	// GetArtifacts is reserved by spec.md §4.6/§9; implementations may
	// return Unimplemented.
	GetArtifacts(context.Context, *ArtifactsRequest) (*ArtifactsResponse, error)
}

// UnimplementedArtifactServiceServer embeds into a server implementation to
// satisfy ArtifactServiceServer for methods not yet overridden.
type UnimplementedArtifactServiceServer struct{}

func (UnimplementedArtifactServiceServer) GetArtifact(context.Context, *ArtifactRequest) (*Artifact, error) {
	return nil, status.Error(codes.Unimplemented, "method GetArtifact not implemented")
}
func (UnimplementedArtifactServiceServer) StoreArtifact(context.Context, *Artifact) (*ArtifactResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StoreArtifact not implemented")
}
func (UnimplementedArtifactServiceServer) GetArtifacts(context.Context, *ArtifactsRequest) (*ArtifactsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetArtifacts not implemented")
}

func artifactServiceGetArtifactHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArtifactRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArtifactServiceServer).GetArtifact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/vorpal.ArtifactService/GetArtifact"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ArtifactServiceServer).GetArtifact(ctx, req.(*ArtifactRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func artifactServiceStoreArtifactHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Artifact)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArtifactServiceServer).StoreArtifact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/vorpal.ArtifactService/StoreArtifact"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ArtifactServiceServer).StoreArtifact(ctx, req.(*Artifact))
	}
	return interceptor(ctx, in, info, handler)
}

func artifactServiceGetArtifactsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArtifactsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArtifactServiceServer).GetArtifacts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/vorpal.ArtifactService/GetArtifacts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ArtifactServiceServer).GetArtifacts(ctx, req.(*ArtifactsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterArtifactServiceServer registers srv on s.
func RegisterArtifactServiceServer(s grpc.ServiceRegistrar, srv ArtifactServiceServer) {
	s.RegisterService(&artifactServiceServiceDesc, srv)
}

var artifactServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "vorpal.ArtifactService",
	HandlerType: (*ArtifactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetArtifact", Handler: artifactServiceGetArtifactHandler},
		{MethodName: "StoreArtifact", Handler: artifactServiceStoreArtifactHandler},
		{MethodName: "GetArtifacts", Handler: artifactServiceGetArtifactsHandler},
	},
	Metadata: "vorpal.proto",
}
