package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// AuthInterceptor guards the gRPC service: API client keys and the client
// token bucket when the API gateway is enabled, then the caller's bearer
// token on every call.
type AuthInterceptor struct {
	cfg     *config.APIConfig
	gate    *clientGate
	limiter *rateLimiter
	tokens  *TokenManager
}

func NewAuthInterceptor(cfg *config.APIConfig, tokens *TokenManager) *AuthInterceptor {
	return &AuthInterceptor{
		cfg:     cfg,
		gate:    newClientGate(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
		tokens:  tokens,
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if a.cfg.Enabled {
			if a.gate.enabled {
				if err := a.checkAuth(ctx, info.FullMethod); err != nil {
					return nil, err
				}
			}
			if !a.limiter.allow(a.clientKey(ctx)) {
				return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
			}
		}

		ctx, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, method string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	err := a.gate.check(first(md.Get(a.gate.apiKeyHeader)), first(md.Get(a.gate.extraHeader)), requiredPermission(method))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

// authenticate resolves the "authorization: Bearer <token>" metadata into
// the call principal.
func (a *AuthInterceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	raw := bearerToken(first(md.Get("authorization")))
	if raw == "" || a.tokens == nil {
		return ctx, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	p, err := a.tokens.Parse(raw)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	return withPrincipal(ctx, p), nil
}

func requiredPermission(method string) string {
	switch method {
	case fullMethod("ResolveDispute"), fullMethod("ListDisputed"):
		return permDesk
	case fullMethod("GetReturn"):
		return permRentalsRead
	case fullMethod("CreateBooking"), fullMethod("CancelBooking"),
		fullMethod("InitiateReturn"), fullMethod("ReviewReturn"):
		return permRentalsWrite
	default:
		return ""
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.gate.apiKeyHeader)); apiKey != "" {
		return apiKey
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))
		ctx = withRequestID(ctx, requestID)

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}
		metrics.IncGRPC(info.FullMethod, code.String())

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		event := base.Info()
		if code == codes.Internal || code == codes.Unknown {
			event = base.Error().Err(err)
		}
		event.
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

const requestIDMetadataKey = "x-request-id"

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}
