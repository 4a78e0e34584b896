// Package supabase authenticates administrators through PostgREST RPC functions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/admin"
)

const rpcPath = "/rest/v1/rpc/"

// RPCError is a PostgREST error response
type RPCError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("rpc failed with status %d", e.StatusCode)
}

// Authenticator implements admin.Authenticator against the verify_password
// and cambiar_password_admin functions.
type Authenticator struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewAuthenticator creates the RPC authenticator
func NewAuthenticator(cfg config.AuthConfig, httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Authenticator{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		anonKey:    cfg.SupabaseAnonKey,
		httpClient: httpClient,
		tracer:     otel.Tracer("cuenca-ubate/supabase"),
	}
}

// Verify checks a username/password pair
func (a *Authenticator) Verify(ctx context.Context, username, password string) (bool, error) {
	var ok bool
	err := a.call(ctx, "verify_password", map[string]string{
		"p_username": username,
		"p_password": password,
	}, &ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ChangePassword asks the database to replace the password
func (a *Authenticator) ChangePassword(ctx context.Context, username, current, next string) (admin.ChangeResult, error) {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := a.call(ctx, "cambiar_password_admin", map[string]string{
		"p_username":         username,
		"p_current_password": current,
		"p_new_password":     next,
	}, &out)
	if err != nil {
		return admin.ChangeResult{}, err
	}
	return admin.ChangeResult{Success: out.Success, Message: out.Message}, nil
}

func (a *Authenticator) call(ctx context.Context, fn string, args interface{}, out interface{}) error {
	ctx, span := a.tracer.Start(ctx, "supabase.rpc",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", fn)),
	)
	defer span.End()

	if err := a.doCall(ctx, fn, args, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (a *Authenticator) doCall(ctx context.Context, fn string, args interface{}, out interface{}) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode rpc arguments: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+rpcPath+fn, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+a.anonKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s failed: %w", fn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rpcErr := &RPCError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(raw, rpcErr) != nil {
			rpcErr.Message = strings.TrimSpace(string(raw))
		}
		return rpcErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode rpc %s response: %w", fn, err)
	}
	return nil
}
