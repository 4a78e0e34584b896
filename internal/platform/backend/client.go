// Package backend is a typed client for the remote gallery backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/subscriber"
)

const tracerName = "cuenca-ubate/backend"

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 4 << 10

// ErrRejected is returned when the backend answers 2xx with success=false
var ErrRejected = errors.New("backend rejected the request")

// HTTPError is a non-2xx answer from the backend
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.StatusCode, e.Body)
}

// Detail returns the "detail" field of a JSON error body, or the raw body
func (e *HTTPError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return e.Body
}

// IsStatus reports whether err is an HTTPError with the given status code
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

// Keys are the runtime API keys handed out by the backend
type Keys struct {
	PlantIDAPIKey  string `json:"PLANT_ID_API_KEY"`
	DeepSeekAPIKey string `json:"DEEPSEEK_API_KEY"`
}

type ackResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// Client talks to the backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient creates a backend client. A nil httpClient gets one with the configured timeout.
func NewClient(cfg config.BackendConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: httpClient,
		tracer:     otel.Tracer(tracerName),
	}
}

// ListImages fetches every image record
func (c *Client) ListImages(ctx context.Context) ([]gallery.ImageRecord, error) {
	var out struct {
		Images []gallery.ImageRecord `json:"images"`
	}
	if err := c.doJSON(ctx, "ListImages", http.MethodGet, "/list-images", nil, "", &out); err != nil {
		return nil, err
	}
	if out.Images == nil {
		out.Images = []gallery.ImageRecord{}
	}
	return out.Images, nil
}

// ChangeStatus moves a record to a new moderation state
func (c *Client) ChangeStatus(ctx context.Context, id int, status gallery.Status) error {
	q := url.Values{}
	q.Set("nuevo_estado", string(status))
	path := "/cambiar-estado/" + strconv.Itoa(id) + "?" + q.Encode()
	return c.doAck(ctx, "ChangeStatus", http.MethodPut, path, nil, "")
}

// EditImage updates a record's metadata; absent coordinates are not sent
func (c *Client) EditImage(ctx context.Context, id int, edit gallery.Edit) error {
	q := url.Values{}
	q.Set("nuevo_nombre", edit.Nombre)
	q.Set("nueva_descripcion", edit.Descripcion)
	q.Set("tipo_publicacion", string(edit.TipoPublicacion))
	if edit.Lat != nil {
		q.Set("nueva_lat", strconv.FormatFloat(*edit.Lat, 'f', -1, 64))
	}
	if edit.Lng != nil {
		q.Set("nueva_lng", strconv.FormatFloat(*edit.Lng, 'f', -1, 64))
	}
	path := "/editar-imagen/" + strconv.Itoa(id) + "?" + q.Encode()
	return c.doAck(ctx, "EditImage", http.MethodPut, path, nil, "")
}

// DeleteImage removes a record
func (c *Client) DeleteImage(ctx context.Context, id int) error {
	return c.doAck(ctx, "DeleteImage", http.MethodDelete, "/delete-image/"+strconv.Itoa(id), nil, "")
}

// Subscribe registers a newsletter subscriber. A duplicate comes back as
// success=false with a message, not as an error.
func (c *Client) Subscribe(ctx context.Context, nombre, email string) (subscriber.RemoteResult, error) {
	form := url.Values{}
	form.Set("nombre", nombre)
	form.Set("email", email)

	var out subscriber.RemoteResult
	err := c.doJSON(ctx, "Subscribe", http.MethodPost, "/suscribir",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	if err != nil {
		return subscriber.RemoteResult{}, err
	}
	return out, nil
}

// ListSubscribers fetches every subscriber
func (c *Client) ListSubscribers(ctx context.Context) ([]subscriber.Subscriber, error) {
	var out struct {
		Success      bool                    `json:"success"`
		Suscriptores []subscriber.Subscriber `json:"suscriptores"`
	}
	if err := c.doJSON(ctx, "ListSubscribers", http.MethodGet, "/suscriptores", nil, "", &out); err != nil {
		return nil, err
	}
	if out.Suscriptores == nil {
		out.Suscriptores = []subscriber.Subscriber{}
	}
	return out.Suscriptores, nil
}

// DeleteSubscriber removes a subscriber by backend id
func (c *Client) DeleteSubscriber(ctx context.Context, id int) error {
	return c.doAck(ctx, "DeleteSubscriber", http.MethodDelete, "/eliminar-suscriptor/"+strconv.Itoa(id), nil, "")
}

// Upload sends a picture for moderation
func (c *Client) Upload(ctx context.Context, req identification.UploadRequest) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	filename := req.Filename
	if filename == "" {
		filename = "planta.jpg"
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return fmt.Errorf("failed to write multipart file: %w", err)
	}

	fields := map[string]string{
		"planta_id":      req.PlantaID,
		"nombre_usuario": req.NombreUsuario,
		"description":    req.Description,
	}
	if req.Lat != nil {
		fields["lat"] = strconv.FormatFloat(*req.Lat, 'f', -1, 64)
	}
	if req.Lng != nil {
		fields["lng"] = strconv.FormatFloat(*req.Lng, 'f', -1, 64)
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.doAck(ctx, "Upload", http.MethodPost, "/upload", &body, w.FormDataContentType())
}

// APIKeys fetches the runtime keys for third-party APIs
func (c *Client) APIKeys(ctx context.Context) (Keys, error) {
	var keys Keys
	if err := c.doJSON(ctx, "APIKeys", http.MethodGet, "/api/keys", nil, "", &keys); err != nil {
		return Keys{}, err
	}
	return keys, nil
}

// Health checks that the backend answers
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, "Health", http.MethodGet, "/health", nil, "", nil)
}

// doAck performs a call whose body is {success, message}
func (c *Client) doAck(ctx context.Context, op, method, path string, body io.Reader, contentType string) error {
	var ack ackResponse
	if err := c.doJSON(ctx, op, method, path, body, contentType, &ack); err != nil {
		return err
	}
	if ack.Success != nil && !*ack.Success {
		return fmt.Errorf("%w: %s", ErrRejected, ack.Message)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader, contentType string, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("backend.path", path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build request")
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		span.RecordError(httpErr)
		span.SetStatus(codes.Error, httpErr.Error())
		return httpErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid response body")
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
