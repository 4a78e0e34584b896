package testutils

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/gallery"
)

// UpstreamKey is the identification API key handed out by the fake backend
const UpstreamKey = "test-plantnet-key"

// Upload is a picture received by the fake backend
type Upload struct {
	Filename      string
	PlantaID      string
	NombreUsuario string
	Description   string
	Size          int
}

// Upstream fakes the gallery backend, the identification API and EmailJS on one server
type Upstream struct {
	Server *httptest.Server

	mu              sync.Mutex
	images          []gallery.ImageRecord
	listCalls       int
	uploads         []Upload
	subscribed      []string
	refuseSubscribe bool
	emails          int
	species         string
}

// NewUpstream starts the fake upstream; it closes with the test
func NewUpstream(t interface{ Cleanup(func()) }) *Upstream {
	u := &Upstream{species: "Quercus humboldtii"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /list-images", u.listImages)
	mux.HandleFunc("POST /upload", u.upload)
	mux.HandleFunc("POST /suscribir", u.subscribe)
	mux.HandleFunc("GET /api/keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"PLANT_ID_API_KEY": UpstreamKey})
	})
	mux.HandleFunc("POST /v2/identify/all", u.identify)
	mux.HandleFunc("POST /api/v1.0/email/send", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.emails++
		u.mu.Unlock()
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // Test server
	})

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Server.Close)
	return u
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // Test server
}

func (u *Upstream) listImages(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listCalls++
	writeJSON(w, http.StatusOK, map[string]any{"images": u.images})
}

func (u *Upstream) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "file is required"})
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(file) //nolint:errcheck // Test server

	u.mu.Lock()
	u.uploads = append(u.uploads, Upload{
		Filename:      header.Filename,
		PlantaID:      r.FormValue("planta_id"),
		NombreUsuario: r.FormValue("nombre_usuario"),
		Description:   r.FormValue("description"),
		Size:          buf.Len(),
	})
	u.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Imagen subida"})
}

func (u *Upstream) subscribe(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.refuseSubscribe {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "base de datos no disponible"})
		return
	}
	u.subscribed = append(u.subscribed, r.PostFormValue("email"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Suscripción exitosa"})
}

func (u *Upstream) identify(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("api-key") != UpstreamKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid API key"})
		return
	}
	u.mu.Lock()
	species := u.species
	u.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{{
			"score": 0.87,
			"species": map[string]any{
				"scientificName":              species + " Bonpl.",
				"scientificNameWithoutAuthor": species,
				"commonNames":                 []string{"Roble andino"},
			},
		}},
	})
}

// SetImages replaces the backend image list
func (u *Upstream) SetImages(images []gallery.ImageRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.images = images
}

// ListCalls counts the image list fetches
func (u *Upstream) ListCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.listCalls
}

// Uploads returns the pictures received so far
func (u *Upstream) Uploads() []Upload {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Upload(nil), u.uploads...)
}

// Subscribed returns the emails the backend accepted
func (u *Upstream) Subscribed() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.subscribed...)
}

// RefuseSubscriptions makes /suscribir answer 503
func (u *Upstream) RefuseSubscriptions(refuse bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.refuseSubscribe = refuse
}

// Emails counts the messages sent through EmailJS
func (u *Upstream) Emails() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.emails
}

// Config builds an application configuration over the containers and the fake upstream
func Config(tc *TestContainers, upstreamURL string) *config.Config {
	cacheCfg := tc.CacheConfig()
	return &config.Config{
		Environment: "test",
		Host:        "127.0.0.1",
		Port:        "0",
		DatabaseURL: tc.DatabaseURL,
		Backend: config.BackendConfig{
			URL:        upstreamURL,
			Timeout:    5 * time.Second,
			CatalogTTL: time.Minute,
		},
		Cache:   &cacheCfg,
		Storage: tc.StorageConfig(),
		PlantNet: config.PlantNetConfig{
			URL:     upstreamURL,
			Timeout: 5 * time.Second,
			KeysTTL: time.Minute,
		},
		Email: config.EmailConfig{
			URL:             upstreamURL,
			ServiceID:       "service_test",
			TemplateID:      "template_test",
			AdminTemplateID: "template_admin",
			PublicKey:       "public",
			PrivateKey:      "private",
			Timeout:         5 * time.Second,
		},
		Notify: config.NotifyConfig{
			Transport:      config.TransportEmailJS,
			Interval:       10 * time.Millisecond,
			Concurrency:    1,
			SupportContact: "soporte@example.com",
		},
		Auth: config.AuthConfig{
			Provider:          config.AuthLocal,
			SessionSecret:     "integration-session-secret",
			SessionMaxAge:     time.Hour,
			AdminEmail:        "admin@example.com",
			BootstrapUser:     "admin",
			BootstrapPassword: "secreto123",
		},
	}
}

// PNG encodes a solid green picture of the given size
func PNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	green := color.RGBA{R: 74, G: 124, B: 89, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, green)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img) //nolint:errcheck // Writing to memory
	return buf.Bytes()
}
