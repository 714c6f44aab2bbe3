// Package session keeps the measurements and calibrations of one analysis
// session in memory. Nothing is persisted; a server process owns one Store.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/zeeman-rings-mcp/internal/calibration"
	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

var (
	ErrNotFound = errors.New("measurement not found")

	// ErrNoScale is returned when pixel radii are given but neither the image
	// nor the session has a pixel scale.
	ErrNoScale = errors.New("no pixel scale calibrated")

	// ErrNoField is returned when a measurement gives a current but no field
	// and no field calibration exists.
	ErrNoField = errors.New("no magnetic field: give b_field_t or calibrate the field")
)

// DefaultWavelengthNM is the red cadmium line.
const DefaultWavelengthNM = 643.8

// MeasurementRequest is a measurement as read off the bench: ring radii in
// pixels from a detected ring, the magnet current or the field directly, and
// the line wavelength.
type MeasurementRequest struct {
	ImagePath string `json:"image_path,omitempty"`

	RInnerPx  *float64 `json:"r_inner_px,omitempty"`
	RCenterPx *float64 `json:"r_center_px,omitempty"`
	ROuterPx  *float64 `json:"r_outer_px,omitempty"`

	// MMPerPixel overrides the stored scale.
	MMPerPixel *float64 `json:"mm_per_pixel,omitempty"`

	Current *float64 `json:"current_a,omitempty"`

	// BFieldT overrides the field calibration.
	BFieldT *float64 `json:"b_field_t,omitempty"`

	WavelengthNM *float64 `json:"wavelength_nm,omitempty"`
}

// Entry is a stored, processed measurement.
type Entry struct {
	ID        string `json:"id"`
	ImagePath string `json:"image_path,omitempty"`
	CreatedAt int64  `json:"created_at_ns"`

	zeeman.Measurement
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	optics              zeeman.Optics
	defaultWavelengthNM float64

	entries map[string]*Entry
	order   []string

	scales    map[string]calibration.Scale
	lastScale *calibration.Scale
	field     *calibration.FieldCalibration
}

// NewStore creates an empty session. A zero wavelength selects
// DefaultWavelengthNM.
func NewStore(optics zeeman.Optics, defaultWavelengthNM float64) *Store {
	if defaultWavelengthNM <= 0 {
		defaultWavelengthNM = DefaultWavelengthNM
	}
	return &Store{
		optics:              optics,
		defaultWavelengthNM: defaultWavelengthNM,
		entries:             make(map[string]*Entry),
		scales:              make(map[string]calibration.Scale),
	}
}

// Optics returns the optics measurements are processed with.
func (s *Store) Optics() zeeman.Optics {
	return s.optics
}

// SetScale records the pixel scale for an image. It also becomes the session
// scale used for images without one of their own. An empty path sets only
// the session scale.
func (s *Store) SetScale(imagePath string, scale calibration.Scale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imagePath != "" {
		s.scales[imagePath] = scale
	}
	s.lastScale = &scale
}

// Scale returns the scale for an image, falling back to the session scale.
func (s *Store) Scale(imagePath string) (calibration.Scale, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.scales[imagePath]; ok {
		return sc, true
	}
	if s.lastScale != nil {
		return *s.lastScale, true
	}
	return calibration.Scale{}, false
}

// SetFieldCalibration replaces the current-to-field calibration.
func (s *Store) SetFieldCalibration(c calibration.FieldCalibration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.field = &c
}

// FieldCalibration returns the current-to-field calibration, if any.
func (s *Store) FieldCalibration() (calibration.FieldCalibration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.field == nil {
		return calibration.FieldCalibration{}, false
	}
	return *s.field, true
}

// Assemble converts a request into physics input: pixel radii to millimeters,
// current to field, nanometers to meters.
func (s *Store) Assemble(req MeasurementRequest) (zeeman.RawMeasurementInput, error) {
	raw := zeeman.RawMeasurementInput{Current: copyFloat(req.Current)}

	switch {
	case req.BFieldT != nil:
		raw.BField = *req.BFieldT
	case req.Current != nil:
		fc, ok := s.FieldCalibration()
		if !ok {
			return raw, ErrNoField
		}
		raw.BField = fc.FieldTesla(*req.Current)
	default:
		return raw, ErrNoField
	}

	nm := s.defaultWavelengthNM
	if req.WavelengthNM != nil {
		if *req.WavelengthNM <= 0 {
			return raw, fmt.Errorf("wavelength must be positive, got %g nm", *req.WavelengthNM)
		}
		nm = *req.WavelengthNM
	}
	raw.Wavelength = nm * 1e-9

	if req.RInnerPx == nil && req.RCenterPx == nil && req.ROuterPx == nil {
		return raw, nil
	}

	var mmPerPixel float64
	if req.MMPerPixel != nil {
		mmPerPixel = *req.MMPerPixel
	} else {
		sc, ok := s.Scale(req.ImagePath)
		if !ok {
			return raw, ErrNoScale
		}
		mmPerPixel = sc.MMPerPixel
	}
	if mmPerPixel <= 0 {
		return raw, fmt.Errorf("%w: mm_per_pixel must be positive, got %g", ErrNoScale, mmPerPixel)
	}

	raw.RInner = scaled(req.RInnerPx, mmPerPixel)
	raw.RCenter = scaled(req.RCenterPx, mmPerPixel)
	raw.ROuter = scaled(req.ROuterPx, mmPerPixel)
	return raw, nil
}

// Add assembles, processes and stores a measurement.
func (s *Store) Add(req MeasurementRequest) (Entry, error) {
	raw, err := s.Assemble(req)
	if err != nil {
		return Entry{}, fmt.Errorf("assemble measurement: %w", err)
	}
	return s.AddProcessed(req.ImagePath, s.optics.ProcessMeasurement(raw)), nil
}

// AddProcessed stores an already processed measurement.
func (s *Store) AddProcessed(imagePath string, m zeeman.Measurement) Entry {
	e := &Entry{
		ID:          uuid.New().String(),
		ImagePath:   imagePath,
		CreatedAt:   time.Now().UnixNano(),
		Measurement: m,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	return *e
}

// Get returns a measurement by ID.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *e, nil
}

// List returns the measurements in insertion order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// ListByField returns the measurements sorted by field, ties in insertion
// order.
func (s *Store) ListByField() []Entry {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BField < out[j].BField
	})
	return out
}

// Measurements returns the processed records in insertion order.
func (s *Store) Measurements() []zeeman.Measurement {
	entries := s.List()
	out := make([]zeeman.Measurement, len(entries))
	for i, e := range entries {
		out[i] = e.Measurement
	}
	return out
}

// Delete removes a measurement by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every measurement. Calibrations are kept.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.order)
	s.entries = make(map[string]*Entry)
	s.order = nil
	return n
}

// Results runs the Bohr magneton regression over the stored measurements.
func (s *Store) Results() zeeman.BohrMagnetonResult {
	return zeeman.EstimateBohrMagneton(s.Measurements())
}

func scaled(px *float64, mmPerPixel float64) *float64 {
	if px == nil {
		return nil
	}
	return zeeman.Float(*px * mmPerPixel)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return zeeman.Float(*v)
}
