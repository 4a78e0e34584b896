// Package plantnet identifies plant pictures with the Pl@ntNet API.
package plantnet

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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/identification"
)

const defaultErrorMessage = "Error al identificar la planta"

// KeySource hands out the API key at call time
type KeySource interface {
	PlantNetKey(ctx context.Context) (string, error)
}

// keyForgetter is implemented by key sources that cache; a rejected key is dropped
// so the next identification fetches a fresh one
type keyForgetter interface {
	Forget()
}

// Client calls POST /v2/identify/all
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeySource
	tracer     trace.Tracer
}

// NewClient creates a Pl@ntNet client
func NewClient(cfg config.PlantNetConfig, keys KeySource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: httpClient,
		keys:       keys,
		tracer:     otel.Tracer("cuenca-ubate/plantnet"),
	}
}

type identifyResponse struct {
	Results []struct {
		Score   float64 `json:"score"`
		Species struct {
			ScientificName              string   `json:"scientificName"`
			ScientificNameWithoutAuthor string   `json:"scientificNameWithoutAuthor"`
			CommonNames                 []string `json:"commonNames"`
		} `json:"species"`
	} `json:"results"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Identify sends the picture and returns the best match
func (c *Client) Identify(ctx context.Context, image io.Reader, filename string) (identification.Result, error) {
	ctx, span := c.tracer.Start(ctx, "plantnet.Identify", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	result, err := c.identify(ctx, image, filename)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return identification.Result{}, err
	}
	span.SetAttributes(
		attribute.String("plant.scientific_name", result.ScientificName),
		attribute.Float64("plant.score", result.Score),
	)
	return result, nil
}

func (c *Client) identify(ctx context.Context, image io.Reader, filename string) (identification.Result, error) {
	key, err := c.keys.PlantNetKey(ctx)
	if errors.Is(err, identification.ErrKeysUnavailable) {
		return identification.Result{}, err
	}
	if err != nil {
		return identification.Result{}, fmt.Errorf("%w: %v", identification.ErrKeysUnavailable, err)
	}
	if key == "" {
		return identification.Result{}, identification.ErrKeysUnavailable
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename == "" {
		filename = "planta.jpg"
	}
	part, err := w.CreateFormFile("images", filename)
	if err != nil {
		return identification.Result{}, fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return identification.Result{}, fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.WriteField("organs", "auto"); err != nil {
		return identification.Result{}, fmt.Errorf("failed to write organs field: %w", err)
	}
	if err := w.Close(); err != nil {
		return identification.Result{}, fmt.Errorf("failed to close multipart body: %w", err)
	}

	endpoint := c.baseURL + "/v2/identify/all?api-key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return identification.Result{}, fmt.Errorf("failed to build identify request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return identification.Result{}, fmt.Errorf("identify request failed: %w", redactKey(err, key))
	}
	defer resp.Body.Close()

	var data identifyResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)

	// Pl@ntNet answers 404 "Species not found" when nothing matches
	if resp.StatusCode == http.StatusNotFound {
		return identification.Result{}, identification.ErrNoMatch
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if f, ok := c.keys.(keyForgetter); ok {
			f.Forget()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := defaultErrorMessage
		if decodeErr == nil && data.Error != "" {
			msg = data.Error
		}
		return identification.Result{}, errors.New(msg)
	}
	if decodeErr != nil {
		return identification.Result{}, fmt.Errorf("failed to decode identify response: %w", decodeErr)
	}
	if len(data.Results) == 0 {
		return identification.Result{}, identification.ErrNoMatch
	}

	best := data.Results[0]
	name := best.Species.ScientificNameWithoutAuthor
	if name == "" {
		name = best.Species.ScientificName
	}
	if name == "" {
		name = identification.UnknownPlantName
	}
	commonNames := best.Species.CommonNames
	if commonNames == nil {
		commonNames = []string{}
	}

	return identification.Result{
		ScientificName: name,
		Score:          best.Score,
		CommonNames:    commonNames,
		Description:    identification.Describe(name),
		Sources:        identification.TrustedSources(name),
	}, nil
}

// redactKey keeps the API key out of url.Error messages
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), "REDACTED")
	}
	return err
}
