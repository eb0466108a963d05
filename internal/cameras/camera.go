package cameras

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus = errors.New("invalid camera status")
	ErrNameRequired  = errors.New("camera name is required")
	ErrNameTooLong   = errors.New("name too long")
	ErrInvalidPort   = errors.New("invalid port")
)

const MaxNameLength = 120

// Status is the operational state of a camera.
type Status string

const (
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusError       Status = "error"
	StatusMaintenance Status = "maintenance"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusError, StatusMaintenance:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Camera is the public camera shape.
type Camera struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	IPAddress string    `json:"ip_address"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	RTSPURL   string    `json:"rtsp_url"`
	Status    Status    `json:"status"`
	Location  string    `json:"location"`
	ProjectID uuid.UUID `json:"project_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is what an operator supplies when adding a camera by hand.
type Input struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Location  string `json:"location"`
	RTSPURL   string `json:"rtsp_url"`
	Status    Status `json:"status"`
}

// Validate normalizes the input. An empty status becomes offline.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if len(in.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if in.Port < 0 || in.Port > 65535 {
		return ErrInvalidPort
	}
	if in.Status == "" {
		in.Status = StatusOffline
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Patch is a partial camera update; nil fields are left alone.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Model     *string `json:"model,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	Port      *int    `json:"port,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	Location  *string `json:"location,omitempty"`
	Status    *Status `json:"status,omitempty"`
	RTSPURL   *string `json:"rtsp_url,omitempty"`
}

// Validate trims a present name the same way Input.Validate does.
func (p *Patch) Validate() error {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return ErrNameRequired
		}
		if len(n) > MaxNameLength {
			return ErrNameTooLong
		}
		p.Name = &n
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Port != nil && (*p.Port < 0 || *p.Port > 65535) {
		return ErrInvalidPort
	}
	return nil
}
