package render

import (
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/subscriber"
)

// HomeView feeds the home page
type HomeView struct {
	Latest   []gallery.ImageRecord
	News     []gallery.ImageRecord
	Carousel gallery.Carousel
}

// Slide is the news record under the carousel cursor
func (v HomeView) Slide() *gallery.ImageRecord {
	if v.Carousel.Empty() || v.Carousel.Index >= len(v.News) {
		return nil
	}
	return &v.News[v.Carousel.Index]
}

// GalleryView feeds the public gallery and its photo modal
type GalleryView struct {
	Records []gallery.ImageRecord
	Term    string
	Sort    gallery.SortKey
	// Modal is positioned on the open photo; empty when the modal is closed
	Modal gallery.Carousel
}

// Photo is the record shown in the modal
func (v GalleryView) Photo() *gallery.ImageRecord {
	if v.Modal.Empty() || v.Modal.Index >= len(v.Records) {
		return nil
	}
	return &v.Records[v.Modal.Index]
}

// MapView feeds the map page
type MapView struct {
	// Marker is the location picked from the admin panel
	Marker *gallery.Marker
	Points []gallery.Marker
}

// SubscribeView feeds the subscription form
type SubscribeView struct {
	Nombre string
	Email  string
	Error  string
}

// IdentifyView feeds the identification page
type IdentifyView struct {
	Flow identification.Flow
}

// PlantsView feeds the "Mis plantas" page
type PlantsView struct {
	Plants []identification.SavedPlant
}

// LoginView feeds the login and password change forms
type LoginView struct {
	Username      string
	Error         string
	ChangeMessage string
	ChangeOK      bool
	NoticeError   string
}

// AdminView feeds the admin dashboard
type AdminView struct {
	Records         []gallery.ImageRecord
	Stats           gallery.Stats
	Term            string
	Status          string
	Sort            gallery.SortKey
	SubscriberCount int
	// SubscribersError is set when the subscriber list could not be loaded
	SubscribersError string
	OfferBroadcast   bool
}

// SubscribersView feeds the subscriber management page
type SubscribersView struct {
	Subscribers []subscriber.Subscriber
	FromMirror  bool
	Active      int
}

// ConfirmView asks before a destructive operation. Fields are posted back with confirmado.
type ConfirmView struct {
	Message   string
	Action    string
	Fields    map[string]string
	CancelURL string
}
