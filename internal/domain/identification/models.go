package identification

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// State of a visitor's identification flow
type State string

const (
	StateIdle          State = "idle"
	StateImageSelected State = "image_selected"
	StateResultShown   State = "result_shown"
)

const (
	UnknownPlantName     = "Planta desconocida"
	UnidentifiedName     = "Planta sin identificar"
	UnidentifiedCommon   = "Sin identificar"
	NoCommonName         = "Sin nombre común"
	UnidentifiedPlantaID = "planta-sin-identificar"
	WebUserName          = "usuario_web"
	SavedStatusPending   = "pending"
)

// Domain errors
var (
	ErrFlowNotFound    = errors.New("identification flow not found")
	ErrNoImage         = errors.New("no image selected")
	ErrNoResult        = errors.New("no identification result to save")
	ErrNoMatch         = errors.New("identification returned no match")
	ErrInvalidImage    = errors.New("invalid image")
	ErrKeysUnavailable = errors.New("identification api key unavailable")
	ErrPlantNotFound   = errors.New("saved plant not found")
)

// Message returns the Spanish text shown for an identification error
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoImage):
		return "Por favor selecciona una imagen primero"
	case errors.Is(err, ErrNoResult):
		return "No hay datos de planta para guardar"
	case errors.Is(err, ErrNoMatch):
		return "No se pudo identificar la planta. Intenta con otra imagen más clara."
	case errors.Is(err, ErrKeysUnavailable):
		return "Error de configuración. Las API keys no están disponibles."
	case errors.Is(err, ErrInvalidImage):
		return "El archivo seleccionado no es una imagen válida"
	case errors.Is(err, ErrFlowNotFound):
		return "La sesión de identificación expiró. Selecciona la imagen de nuevo."
	default:
		return err.Error()
	}
}

// Photo is the staged picture of a flow
type Photo struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Source is a link to an external reference about a plant
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Result is the best match of an identification
type Result struct {
	ScientificName string   `json:"scientific_name"`
	Score          float64  `json:"score"`
	CommonNames    []string `json:"common_names"`
	Description    string   `json:"description"`
	Sources        []Source `json:"sources"`
}

// Confidence renders the score as "Confianza: 87.3%"
func (r Result) Confidence() string {
	return FormatConfidence(r.Score)
}

// CommonNamesText joins the common names for display
func (r Result) CommonNamesText() string {
	if len(r.CommonNames) == 0 {
		return "No se encontraron nombres comunes"
	}
	return strings.Join(r.CommonNames, ", ")
}

// PrimaryCommonName is the first common name or a fallback
func (r Result) PrimaryCommonName() string {
	if len(r.CommonNames) == 0 || strings.TrimSpace(r.CommonNames[0]) == "" {
		return NoCommonName
	}
	return r.CommonNames[0]
}

// Flow is one visitor's identification slot. The result is overwritten on every attempt.
type Flow struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Photo     *Photo    `json:"photo,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Notice    string    `json:"notice,omitempty"`
	Saved     bool      `json:"saved,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFlow starts an idle flow
func NewFlow(id string, now time.Time) Flow {
	return Flow{ID: id, State: StateIdle, UpdatedAt: now}
}

// SelectImage stages a new picture and drops any previous result
func (f *Flow) SelectImage(p Photo, now time.Time) {
	f.State = StateImageSelected
	f.Photo = &p
	f.Result = nil
	f.Error = ""
	f.Notice = ""
	f.Saved = false
	f.UpdatedAt = now
}

// Identified records a successful identification
func (f *Flow) Identified(r Result, now time.Time) error {
	if f.Photo == nil || f.State == StateIdle {
		return ErrNoImage
	}
	f.State = StateResultShown
	f.Result = &r
	f.Error = ""
	f.Notice = ""
	f.Saved = false
	f.UpdatedAt = now
	return nil
}

// Failed records a failed identification; the flow stays with its image selected
func (f *Flow) Failed(msg string, now time.Time) {
	if f.Photo != nil {
		f.State = StateImageSelected
	}
	f.Result = nil
	f.Error = msg
	f.Notice = ""
	f.UpdatedAt = now
}

// MarkSaved records a successful save
func (f *Flow) MarkSaved(notice string, now time.Time) {
	f.Saved = true
	f.Error = ""
	f.Notice = notice
	f.UpdatedAt = now
}

// Reset returns to idle
func (f *Flow) Reset(now time.Time) {
	f.State = StateIdle
	f.Photo = nil
	f.Result = nil
	f.Error = ""
	f.Notice = ""
	f.Saved = false
	f.UpdatedAt = now
}

// CanIdentify reports whether identify is enabled
func (f Flow) CanIdentify() bool {
	return f.Photo != nil && f.State != StateIdle
}

// CanSave reports whether the identified plant may be saved
func (f Flow) CanSave() bool {
	return f.State == StateResultShown && f.Result != nil && !f.Saved
}

// SavedPlant is an entry of the local "Mis plantas" collection
type SavedPlant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CommonName   string    `json:"commonName"`
	ImageKey     string    `json:"image"`
	ThumbnailKey string    `json:"thumbnail,omitempty"`
	DateSaved    time.Time `json:"dateSaved"`
	Probability  float64   `json:"probability"`
	Sources      []Source  `json:"sources"`
	Status       string    `json:"status"`
}

// Identified reports whether the plant was saved with an identification
func (p SavedPlant) Identified() bool {
	return p.Name != UnidentifiedName
}

// NewSavedPlant builds the collection entry for an identified plant
func NewSavedPlant(id string, r Result, imageKey string, now time.Time) SavedPlant {
	return SavedPlant{
		ID:          id,
		Name:        r.ScientificName,
		CommonName:  r.PrimaryCommonName(),
		ImageKey:    imageKey,
		DateSaved:   now,
		Probability: r.Score,
		Sources:     TrustedSources(r.ScientificName),
		Status:      SavedStatusPending,
	}
}

// NewUnidentifiedPlant builds the collection entry for a plant saved without identification
func NewUnidentifiedPlant(id, imageKey string, now time.Time) SavedPlant {
	return SavedPlant{
		ID:         id,
		Name:       UnidentifiedName,
		CommonName: UnidentifiedCommon,
		ImageKey:   imageKey,
		DateSaved:  now,
		Sources:    []Source{},
		Status:     SavedStatusPending,
	}
}

// TrustedSources lists the reference sites to look a plant up on
func TrustedSources(name string) []Source {
	return []Source{
		{Name: "Buscar en navegador", URL: "https://www.google.com/search?q=" + encodeComponent(name+" planta") + "&tbm=isch"},
		{Name: "iNaturalist", URL: "https://www.inaturalist.org/taxa/search?q=" + encodeComponent(name)},
		{Name: "GBIF", URL: "https://www.gbif.org/species/search?q=" + encodeComponent(name)},
	}
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var knowledgeBase = map[string]string{
	"Quercus humboldtii": "El roble andino (Quercus humboldtii) es una especie endémica de los Andes, común en la Cuenca Ubaté. " +
		"Árbol de hasta 25 m de altura, con hojas coriáceas y bordes aserrados. Especie clave en los bosques altoandinos de la región.",
	"Espeletia spp": "Conocidas como frailejones, son plantas emblemáticas de los páramos de la Cuenca Ubaté. " +
		"Crecen lentamente (1-2 cm/año) y son fundamentales para la captación de agua en la región.",
	"Polylepis spp": "Conocidos como árboles de papel, forman bosques en alturas extremas en la Cuenca Ubaté. " +
		"Especies importantes para la conservación del ecosistema paramuno.",
}

// Describe returns the regional description of a plant
func Describe(name string) string {
	if d, ok := knowledgeBase[name]; ok {
		return d
	}
	return fmt.Sprintf("Descripción de %s en la Cuenca Ubaté. Esta planta presenta características típicas de la flora regional, "+
		"con adaptaciones específicas al clima y altitud de la zona. Su presencia contribuye a la biodiversidad local.", name)
}

// FormatConfidence renders a 0..1 score as a percentage with one decimal
func FormatConfidence(score float64) string {
	return fmt.Sprintf("Confianza: %.1f%%", score*100)
}
