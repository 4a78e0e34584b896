// Package locale formats dates the way Spanish-speaking visitors read them.
package locale

import (
	"fmt"
	"time"
)

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var weekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var bogota = loadBogota()

func loadBogota() *time.Location {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		// Colombia has no daylight saving
		return time.FixedZone("COT", -5*60*60)
	}
	return loc
}

// Bogota returns the America/Bogota location
func Bogota() *time.Location {
	return bogota
}

// ShortDate renders d/m/yyyy without zero padding
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// LongDate renders "15 de enero de 2024"
func LongDate(t time.Time) string {
	if t.IsZero() {
		return "Fecha no disponible"
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}

// WeekdayDate renders "lunes, 15 de enero de 2024"
func WeekdayDate(t time.Time) string {
	if t.IsZero() {
		return "Fecha no disponible"
	}
	return weekdays[t.Weekday()] + ", " + LongDate(t)
}

// DateTimeBogota renders the instant in Bogota time, "15 de enero de 2024, 02:30 p. m."
func DateTimeBogota(t time.Time) string {
	local := t.In(bogota)
	hour := local.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	suffix := "a. m."
	if local.Hour() >= 12 {
		suffix = "p. m."
	}
	return fmt.Sprintf("%s, %02d:%02d %s", LongDate(local), hour, local.Minute(), suffix)
}
