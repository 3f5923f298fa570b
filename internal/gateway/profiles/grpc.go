package profiles

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const getProfileMethod = "/profiles.v1.ProfileService/GetProfile"

// GRPCGateway is a profile gateway backed by gRPC. Requests and replies use
// well-known protobuf types so no generated client is needed.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates a profile gateway over conn.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

// GetProfile fetches a user's public profile.
func (g *GRPCGateway) GetProfile(ctx context.Context, id string) (*Profile, error) {
	reply := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, getProfileMethod, wrapperspb.String(id), reply); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
		}
		return nil, fmt.Errorf("profile gateway: GetProfile: %w", err)
	}
	return mapProfile(id, reply), nil
}

func mapProfile(id string, s *structpb.Struct) *Profile {
	fields := s.GetFields()
	p := &Profile{
		ID:      id,
		Name:    fields["name"].GetStringValue(),
		Phone:   fields["phone"].GetStringValue(),
		Vehicle: fields["vehicle"].GetStringValue(),
	}
	if v, ok := fields["rating"]; ok {
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
			r := v.GetNumberValue()
			p.Rating = &r
		}
	}
	return p
}
