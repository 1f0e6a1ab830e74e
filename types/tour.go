package types

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a waypoint or segment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// ImageRefKind identifies how an image reference is resolved to bytes.
type ImageRefKind string

const (
	// ImageEmbedded carries the payload inline (raw bytes or a data: URI)
	ImageEmbedded ImageRefKind = "embedded"
	// ImageHandle points at a transient in-memory blob registered by the caller
	ImageHandle ImageRefKind = "handle"
	// ImageRemote is an http(s) address, fetched with a proxy fallback
	ImageRemote ImageRefKind = "remote"
	// ImageStored is an s3://bucket/key address in asset storage
	ImageStored ImageRefKind = "stored"
)

// ImageRef is a reference to a still image in one of the supported forms.
type ImageRef struct {
	Kind     ImageRefKind `json:"kind"`
	Data     []byte       `json:"data,omitempty"`
	MIME     string       `json:"mime,omitempty"`
	HandleID string       `json:"handle_id,omitempty"`
	URL      string       `json:"url,omitempty"`
}

// EmbeddedImage builds an inline image reference.
func EmbeddedImage(data []byte, mime string) ImageRef {
	return ImageRef{Kind: ImageEmbedded, Data: data, MIME: mime}
}

// HandleImage references a transient in-memory blob by handle ID.
func HandleImage(id string) ImageRef {
	return ImageRef{Kind: ImageHandle, HandleID: id}
}

// RemoteImage references an image by http(s) URL.
func RemoteImage(url string) ImageRef {
	return ImageRef{Kind: ImageRemote, URL: url}
}

// StoredImage references an image in asset storage by s3:// URL.
func StoredImage(url string) ImageRef {
	return ImageRef{Kind: ImageStored, URL: url}
}

// DisplayURL returns an address the render layer can show directly.
// Embedded payloads are rendered as a data: URI.
func (r ImageRef) DisplayURL() string {
	switch r.Kind {
	case ImageEmbedded:
		if len(r.Data) == 0 {
			return r.URL
		}
		mime := r.MIME
		if mime == "" {
			mime = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(r.Data))
	case ImageHandle:
		return "memory://" + r.HandleID
	default:
		return r.URL
	}
}

// Waypoint is a camera angle with an associated source or generated image.
// This core only reads waypoints; the angle-generation flow owns mutation.
type Waypoint struct {
	ID        string    `json:"id"`
	Azimuth   float64   `json:"azimuth"`
	Elevation float64   `json:"elevation"`
	Distance  float64   `json:"distance"`
	IsSource  bool      `json:"is_source"`
	Status    Status    `json:"status"`
	Image     *ImageRef `json:"image,omitempty"`
}

// ImageURL returns the waypoint's displayable image address, or "".
func (w *Waypoint) ImageURL() string {
	if w == nil || w.Image == nil {
		return ""
	}
	return w.Image.DisplayURL()
}

// Version is an immutable record of one completed generation attempt.
type Version struct {
	ID                string    `json:"id"`
	ClipURL           string    `json:"clip_url"`
	CreatedAt         time.Time `json:"created_at"`
	ProviderProjectID string    `json:"provider_project_id,omitempty"`
	ProviderJobID     string    `json:"provider_job_id,omitempty"`
	Selected          bool      `json:"selected"`
}

// Segment is a directed transition edge between two waypoints.
type Segment struct {
	ID             string    `json:"id"`
	FromWaypointID string    `json:"from_waypoint_id"`
	ToWaypointID   string    `json:"to_waypoint_id"`
	Status         Status    `json:"status"`
	ClipURL        string    `json:"clip_url,omitempty"`
	Progress       int       `json:"progress"`
	Worker         string    `json:"worker,omitempty"`
	Error          string    `json:"error,omitempty"`
	Versions       []Version `json:"versions,omitempty"`
}

// Playable reports whether the segment has a usable clip. A segment is ready
// if and only if it has a clip address.
func (s *Segment) Playable() bool {
	return s.Status == StatusReady && s.ClipURL != ""
}

// ResetForRegeneration returns the segment to pending and clears transient
// fields. Prior versions are kept.
func (s *Segment) ResetForRegeneration() {
	s.Status = StatusPending
	s.ClipURL = ""
	s.Progress = 0
	s.Worker = ""
	s.Error = ""
}

// AddVersion appends a version record. A selected version deselects all
// others and becomes the segment's current clip.
func (s *Segment) AddVersion(v Version) {
	if v.Selected {
		for i := range s.Versions {
			s.Versions[i].Selected = false
		}
		s.ClipURL = v.ClipURL
		s.Status = StatusReady
	}
	s.Versions = append(s.Versions, v)
}

// SelectVersion marks the version with the given ID as selected and points
// the segment's clip address at it. Returns false if no such version exists.
func (s *Segment) SelectVersion(versionID string) bool {
	found := false
	for i := range s.Versions {
		if s.Versions[i].ID == versionID {
			s.Versions[i].Selected = true
			s.ClipURL = s.Versions[i].ClipURL
			s.Status = StatusReady
			found = true
		} else {
			s.Versions[i].Selected = false
		}
	}
	return found
}

// Project bundles the waypoints and segments of one tour.
type Project struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Waypoints []*Waypoint `json:"waypoints"`
	Segments  []*Segment  `json:"segments"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// LoopSegments builds one pending segment per consecutive waypoint pair,
// wrapping last back to first so the tour closes into a loop.
func LoopSegments(waypoints []*Waypoint) []*Segment {
	if len(waypoints) < 2 {
		return nil
	}
	segments := make([]*Segment, 0, len(waypoints))
	for i, wp := range waypoints {
		next := waypoints[(i+1)%len(waypoints)]
		segments = append(segments, &Segment{
			ID:             uuid.New().String(),
			FromWaypointID: wp.ID,
			ToWaypointID:   next.ID,
			Status:         StatusPending,
		})
	}
	return segments
}
